package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_ADDR targets an already running relay, an in-process one is started otherwise
	RelayAddr string `envconfig:"RELAY_ADDR"`
	// E2E_DEBUG_LINES logs every line written and read by the test clients
	DebugLines bool `envconfig:"E2E_DEBUG_LINES" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_READ_TIMEOUT bounds every expected line
	ReadTimeout string `envconfig:"E2E_READ_TIMEOUT" default:"2s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
