package main

import (
	"github.com/alecthomas/kong"
	"github.com/block/relay/pkg/repl"
)

var cli struct {
	Capture repl.Capture `cmd:"" help:"Capture binlog changes for a set of tables and emit typed change events."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("relay"),
		kong.Description("Relay: MySQL change capture with typed value conversion"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
