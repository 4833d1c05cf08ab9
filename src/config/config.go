// Package config holds run options and their defaults.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
)

// Options are the resolved settings for a run.
type Options struct {
	StoreDir  string `validate:"required"`
	OutputDir string `validate:"required"`
	LogLevel  string `validate:"omitempty,oneof=debug info warn error"`
}

// DefaultOptions returns options rooted under the XDG data directory.
func DefaultOptions() Options {
	dataDir := filepath.Join(xdg.DataHome, "chatvault")
	return Options{
		StoreDir:  filepath.Join(dataDir, "store"),
		OutputDir: filepath.Join(dataDir, "output"),
		LogLevel:  "warn",
	}
}

var validate = validator.New()

// Validate checks options before a run starts.
func Validate(opts Options) error {
	if err := validate.Struct(opts); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("invalid option %s: failed %q check", e.Field(), e.Tag())
		}
		return err
	}
	return nil
}
