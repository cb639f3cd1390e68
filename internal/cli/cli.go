// Package cli implements the irrigo command line.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/alecthomas/kong"

	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

// Context is passed to every command's Run method.
type Context struct {
	Engine  *irrigation.Engine
	Out     io.Writer
	Now     func() time.Time
	Version string
}

// Root is the irrigo command tree.
type Root struct {
	Version kong.VersionFlag `help:"Print the version and exit."`

	Recommend RecommendCmd `cmd:"" help:"Compute an irrigation recommendation."`
	Crops     CropsCmd     `cmd:"" help:"List known crops and their coefficients."`
	Soils     SoilsCmd     `cmd:"" help:"List known soils."`
	Show      VersionCmd   `cmd:"" name:"version" help:"Show version information."`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *Context) error {
	_, err := io.WriteString(ctx.Out, "irrigo "+ctx.Version+"\n")
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
