package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the top-level command structure.
type CLI struct {
	LogLevel string `default:"warn" help:"Log level (debug, info, warn, error)"`

	Process ProcessCmd `cmd:"" help:"Convert a chat export archive into the record store and markdown documents"`
	Status  StatusCmd  `cmd:"" help:"Report record store counts and output directory summary"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chatvault"),
		kong.Description("Convert chat export archives into a local record store and markdown documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
