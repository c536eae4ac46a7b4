package main

import (
	"github.com/ironpeg/btcanchor/nodeconfig"
)

type finalizeCmd struct {
	ValidatorIndex uint16   `long:"validator-index" description:"this validator's position in --public, in order" required:"true"`
	Public         []string `long:"public" description:"one validator's public config, repeated in validator-index order" required:"true"`

	Args struct {
		Local string `positional-arg-name:"local" description:"this validator's generate-config secret output"`
		Out   string `positional-arg-name:"out" description:"output path for the runnable node config"`
	} `positional-args:"yes" required:"yes"`
}

func (c *finalizeCmd) Execute([]string) error {
	local, err := nodeconfig.LoadLocalConfig(c.Args.Local)
	if err != nil {
		return ioErr(err)
	}

	publics := make([]nodeconfig.PublicConfig, len(c.Public))
	for i, path := range c.Public {
		pub, err := nodeconfig.LoadPublicConfig(path)
		if err != nil {
			return ioErr(err)
		}
		publics[i] = pub
	}

	node, err := nodeconfig.Finalize(local, c.ValidatorIndex, publics)
	if err != nil {
		return invalidErr(err)
	}

	if err := nodeconfig.WriteNodeConfig(c.Args.Out, node); err != nil {
		return ioErr(err)
	}
	return nil
}
