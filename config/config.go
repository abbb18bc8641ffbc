// Agent configuration. Values come from an optional config file (path in
// XBRIDGE_CONFIG or given explicitly) and environment variables; the
// environment wins. Nested keys map onto env vars with '.' replaced by '_',
// e.g. database.url <- DATABASE_URL.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/TEENet-io/xbridge-agents/logconfig"
	"github.com/spf13/viper"
)

const (
	ENV_CONFIG_FILE_PATH = "XBRIDGE_CONFIG"

	EnvProduction = "production"
	EnvStaging    = "staging"
)

var (
	ErrPollInterval  = errors.New("poll interval must be positive")
	ErrDatabaseURL   = errors.New("database url is required")
	ErrServerPort    = errors.New("server port must be positive")
	ErrRoundDuration = errors.New("auction round duration must be positive")
)

func ErrEnvironment(env string) error {
	return fmt.Errorf("invalid environment %q, expected %s or %s", env, EnvProduction, EnvStaging)
}

type Deployments struct {
	Connext string `mapstructure:"connext"`
}

// ChainConfig is the per-domain configuration.
type ChainConfig struct {
	Providers   []string    `mapstructure:"providers"`
	Subgraph    string      `mapstructure:"subgraph"`
	Deployments Deployments `mapstructure:"deployments"`
}

// newViper reads path (or the file named by XBRIDGE_CONFIG when path is
// empty) on top of the given defaults.
func newViper(path string, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path == "" {
		path = v.GetString(ENV_CONFIG_FILE_PATH)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return v, nil
}

func validateCommon(logLevel, environment string) error {
	if err := logconfig.ValidateLevel(logLevel); err != nil {
		return err
	}
	if environment != EnvProduction && environment != EnvStaging {
		return ErrEnvironment(environment)
	}
	return nil
}

func sortedDomains(chains map[string]ChainConfig) []string {
	domains := make([]string, 0, len(chains))
	for d := range chains {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

func subgraphOverrides(chains map[string]ChainConfig) map[string]string {
	overrides := make(map[string]string)
	for d, c := range chains {
		if c.Subgraph != "" {
			overrides[d] = c.Subgraph
		}
	}
	return overrides
}
