package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/ehorne/chatvault/src/config"
	"github.com/ehorne/chatvault/src/store"
)

// StatusCmd reports store counts and an output directory summary.
type StatusCmd struct {
	Store  string `help:"Record store directory"`
	Output string `help:"Output directory for rendered documents"`
}

func (c *StatusCmd) Run(cli *CLI) error {
	opts := config.DefaultOptions()
	if c.Store != "" {
		opts.StoreDir = c.Store
	}
	if c.Output != "" {
		opts.OutputDir = c.Output
	}

	fsys := afero.NewOsFs()
	st, err := store.Open(fsys, opts.StoreDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	fmt.Println(styleHeading.Render("Record store"))
	fmt.Println(styleMuted.Render(opts.StoreDir))
	fmt.Printf("%s %d\n", styleLabel.Render("Conversations:"), st.Conversations.Count())
	fmt.Printf("%s %d\n", styleLabel.Render("Users:"), st.Users.Count())
	fmt.Printf("%s %d\n", styleLabel.Render("Projects:"), st.Projects.Count())

	meta := st.Metadata()
	if meta.LastProcessed != "" {
		fmt.Printf("%s %s\n", styleLabel.Render("Last processed:"), meta.LastProcessed)
	} else {
		fmt.Println(styleMuted.Render("No runs recorded yet"))
	}

	docs, total := summarizeOutput(fsys, opts.OutputDir)
	fmt.Println()
	fmt.Println(styleHeading.Render("Output"))
	fmt.Println(styleMuted.Render(opts.OutputDir))
	fmt.Printf("%s %d documents, %s\n",
		styleOK.Render("Rendered:"), docs, humanize.Bytes(uint64(total)))
	return nil
}

func summarizeOutput(fsys afero.Fs, dir string) (count int, totalBytes int64) {
	_ = afero.Walk(fsys, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(filepath.Base(path), ".md") {
			count++
			totalBytes += info.Size()
		}
		return nil
	})
	return count, totalBytes
}
