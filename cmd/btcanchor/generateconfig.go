package main

import (
	"github.com/ironpeg/btcanchor/nodeconfig"
)

type generateConfigCmd struct {
	Args struct {
		Template  string `positional-arg-name:"template" description:"path to a generate-template output"`
		LocalOut  string `positional-arg-name:"local-out" description:"output path for this validator's secret config"`
		PublicOut string `positional-arg-name:"public-out" description:"output path for this validator's public config, to share with the others"`
	} `positional-args:"yes" required:"yes"`
}

func (c *generateConfigCmd) Execute([]string) error {
	template, err := nodeconfig.LoadTemplate(c.Args.Template)
	if err != nil {
		return ioErr(err)
	}

	local, err := nodeconfig.GenerateLocalConfig(template)
	if err != nil {
		return invalidErr(err)
	}
	public, err := local.Public()
	if err != nil {
		return invalidErr(err)
	}

	if err := nodeconfig.WriteLocalConfig(c.Args.LocalOut, local); err != nil {
		return ioErr(err)
	}
	if err := nodeconfig.WritePublicConfig(c.Args.PublicOut, public); err != nil {
		return ioErr(err)
	}
	return nil
}
