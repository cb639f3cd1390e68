// Package main provides irrigo, a command line front end to the recommendation engine.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/smartirrigation/smartirrigation/internal/cli"
	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	var root cli.Root
	ctx := kong.Parse(&root,
		kong.Name("irrigo"),
		kong.Description("Irrigation recommendations from crop, soil and weather."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	err := ctx.Run(&cli.Context{
		Engine:  irrigation.NewEngine(),
		Out:     os.Stdout,
		Now:     time.Now,
		Version: Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
