package shared

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xo/dburl"
)

// DsnConnectionDetails is a simple struct to hold a DSN and the schema that owns the target tables.
type DsnConnectionDetails struct {
	Dsn            string `mapstructure:"dsn" errorTxt:"target-dsn" validate:"required"`
	Schema         string `mapstructure:"schema"`
	OriginalScheme string `mapstructure:"-"`
}

// String returns the DSN with redacted password.
func (d DsnConnectionDetails) String() string {
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return fmt.Sprintf("<unparseable DSN: %v>", err)
	}
	return u.Redacted()
}

// Parse checks the DSN and saves the original scheme e.g. postgres or pgsql.
func (d *DsnConnectionDetails) Parse() (*dburl.URL, error) {
	if d.Dsn == "" { // if the Dsn is invalid...
		return nil, errors.New("DSN not found")
	}
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return nil, errors.Wrap(err, "DSN could not be parsed")
	}
	d.OriginalScheme = u.OriginalScheme
	return u, nil
}

// GetScheme returns the scheme of the DSN, parsing it if required.
func (d *DsnConnectionDetails) GetScheme() (string, error) {
	if d.OriginalScheme == "" {
		if _, err := d.Parse(); err != nil {
			return "", err
		}
	}
	return d.OriginalScheme, nil
}
