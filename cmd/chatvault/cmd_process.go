package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/ehorne/chatvault/src/config"
	"github.com/ehorne/chatvault/src/pipeline"
	"github.com/ehorne/chatvault/src/render"
	"github.com/ehorne/chatvault/src/store"
)

// ProcessCmd runs the full export pipeline over one archive.
type ProcessCmd struct {
	Archive string `arg:"" help:"Path to the chat export archive (.zip)"`
	Output  string `help:"Output directory for rendered documents"`
	Store   string `help:"Record store directory"`
	Force   bool   `help:"Reprocess conversations even when unchanged"`
	Verbose bool   `short:"v" help:"Verbose output"`
}

func (c *ProcessCmd) Run(cli *CLI) error {
	opts := config.DefaultOptions()
	if c.Store != "" {
		opts.StoreDir = c.Store
	}
	if c.Output != "" {
		opts.OutputDir = c.Output
	}
	opts.LogLevel = cli.LogLevel
	if c.Verbose {
		opts.LogLevel = "debug"
	}
	if err := config.Validate(opts); err != nil {
		return err
	}

	logger := newLogger(opts.LogLevel)
	fsys := afero.NewOsFs()

	st, err := store.Open(fsys, opts.StoreDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	p := pipeline.New(fsys, st, render.New(), logger, pipeline.Options{
		ArchivePath: c.Archive,
		OutputDir:   opts.OutputDir,
		Force:       c.Force,
	})

	res, err := p.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(styleHeading.Render("Processing complete"))
	fmt.Printf("%s %d processed, %d skipped\n",
		styleLabel.Render("Conversations:"), res.Processed, res.Skipped)
	if res.Invalid > 0 {
		fmt.Println(styleWarn.Render(fmt.Sprintf("Invalid records skipped: %d", res.Invalid)))
	}
	fmt.Printf("%s %d users, %d projects\n", styleLabel.Render("Attribution:"), res.Users, res.Projects)
	fmt.Printf("%s %d written", styleLabel.Render("Documents:"), res.Rendered)
	if res.RenderFailed > 0 {
		fmt.Printf(", %s", styleWarn.Render(fmt.Sprintf("%d failed", res.RenderFailed)))
	}
	fmt.Println()
	fmt.Println(styleMuted.Render("Output: " + opts.OutputDir))
	return nil
}
