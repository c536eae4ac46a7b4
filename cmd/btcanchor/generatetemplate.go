package main

import (
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/nodeconfig"
)

type generateTemplateCmd struct {
	Network           string `long:"network" description:"mainnet, testnet, or regtest" required:"true"`
	AnchoringInterval uint64 `long:"anchoring-interval" description:"host-chain blocks between anchoring attempts" required:"true"`
	TransactionFee    int64  `long:"transaction-fee" description:"satoshis per byte" required:"true"`

	Args struct {
		Path string `positional-arg-name:"path" description:"output template YAML path"`
	} `positional-args:"yes" required:"yes"`
}

func (c *generateTemplateCmd) Execute([]string) error {
	template := nodeconfig.Template{
		Network:           btcprimitives.Network(c.Network),
		AnchoringInterval: c.AnchoringInterval,
		TransactionFee:    c.TransactionFee,
	}
	if err := template.Validate(); err != nil {
		return invalidErr(err)
	}
	if err := nodeconfig.WriteTemplate(c.Args.Path, template); err != nil {
		return ioErr(err)
	}
	return nil
}
