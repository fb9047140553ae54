package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
)

// ReadValueFromEnv will read the env var and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	} else { // else there was no environment variable set...
		return fmt.Errorf("value for environment variable %v not found", name)
	}
}

// GetFlagEnvVarName converts a CLI flag name like "sftp-host" into PINETL_SFTP_HOST.
func GetFlagEnvVarName(flagName string) string {
	n := strings.ToUpper(strings.Replace(strings.TrimSpace(flagName), "-", "_", -1))
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}
