package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fdwatch/fdwatch/internal/config"
	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/ui"
)

// AliasOptions holds the alias command flags.
type AliasOptions struct {
	Mode       string
	Exposition string
	Default    bool
}

// aliasCommand records name -> id in the config file fdwatch would load,
// creating ./.fdwatch.yaml when there is none.
func aliasCommand(out io.Writer, explicit, name, id string, aopts AliasOptions) error {
	if err := config.ValidateMode(aopts.Mode); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Use log, performance, config or overview.")
	}

	path, err := config.Find(explicit)
	if err != nil {
		return err
	}
	if path == "" {
		path = filepath.Join(".", config.ConfigFileName)
		if err := config.Write(path, config.DefaultConfig()); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't create "+path,
				"Check directory permissions, or run 'fdwatch init'.")
		}
	}

	srv := config.Server{ID: id, Mode: aopts.Mode, Exposition: aopts.Exposition}
	if err := config.SetServerAlias(path, name, srv); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't update "+path, "Check the file is valid YAML.")
	}
	if aopts.Default {
		if err := config.SetDefaultServer(path, name); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't update "+path, "Check the file is valid YAML.")
		}
	}

	fmt.Fprintf(out, "%s %s -> %s in %s\n", ui.SymbolSuccess, name, id, path)
	return nil
}
