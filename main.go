package main

import (
	"log/slog"
	"os"

	"inkmap/palette"
	"inkmap/parallel"
	"inkmap/render"
	"inkmap/tile"

	"github.com/alecthomas/kong"
)

type cli struct {
	LogLevel string          `help:"Log level" enum:"debug,info,warn,error" default:"info"`
	Workers  int             `help:"Number of images processed in parallel, 0 for one per CPU" default:"0"`
	Config   kong.ConfigFlag `help:"JSON file with flag defaults"`
	Palette  palette.CLICmd  `cmd:"" help:"Extract the original palette of an image"`
	Tile     tile.CLICmd     `cmd:"" help:"Render a mix or pattern tile for preview"`
	Map      render.CLICmd   `cmd:"" help:"Map images to a restricted ink set"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("inkmap"),
		kong.Description("Reduce images to a small set of printable inks."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.config/inkmap.json", ".inkmap.json"),
	)

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		kctx.FatalIfErrorf(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pool := parallel.Start(c.Workers)
	slog.Debug("started worker pool", "workers", pool.Workers())

	err := kctx.Run(pool.Do, pool.Wait)
	pool.Cancel()
	kctx.FatalIfErrorf(err)
}
