package config

import (
	"path/filepath"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// getConfigHomeDir returns the full path to the directory that stores the config file.
func getConfigHomeDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "error finding home directory")
	}
	return filepath.Join(home, constants.ConfigDir), nil
}

// ExpandPath expands a leading ~ in p.
func ExpandPath(p string) (string, error) {
	return homedir.Expand(p)
}
