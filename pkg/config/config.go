// Package config loads application configuration from an optional JSON
// file layered under environment variables.
package config

import (
	"fmt"
	"os"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ClientSecretFile is the default path to the Google OAuth credentials
// JSON file, used with --oauth.
const ClientSecretFile = "data/client_secret.json"

// Config holds the mail account settings. Command-line flags override
// these; environment variables override the config file.
type Config struct {
	// Environment variable: APPRECEIPTS_USERNAME
	Username string `koanf:"APPRECEIPTS_USERNAME"`
	// Environment variable: APPRECEIPTS_PASSWORD
	Password string `koanf:"APPRECEIPTS_PASSWORD"`
	// Environment variable: APPRECEIPTS_HOST
	Host string `koanf:"APPRECEIPTS_HOST"`
	// Environment variable: APPRECEIPTS_PORT
	Port int `koanf:"APPRECEIPTS_PORT"`
	// Environment variable: APPRECEIPTS_MAILBOX
	Mailbox string `koanf:"APPRECEIPTS_MAILBOX"`
}

// Load reads the given JSON config file (silently skipped when absent)
// and then the environment on top of it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
