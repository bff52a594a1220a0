// Package config holds the explicit run configuration for the offboarding
// pipeline. The struct is built once at startup from flags (with env-var
// defaults resolved by the CLI layer); the pipeline packages never read
// ambient environment state.
package config

import (
	"errors"
	"fmt"
	"strings"
)

type regionEndpoints struct {
	Directory string
	IDP       string
}

// Region presets resolve the two service base URLs. The shipped values are
// public placeholders; real deployments override them via flags or env vars.
var regions = map[string]regionEndpoints{
	"eu": {
		Directory: "https://admin.eu.example.invalid",
		IDP:       "https://idp.eu.example.invalid",
	},
	"us": {
		Directory: "https://admin.us.example.invalid",
		IDP:       "https://idp.us.example.invalid",
	},
}

// Config carries everything a stage run needs.
type Config struct {
	Region string

	DirectoryBaseURL string
	IDPBaseURL       string
	Token            string

	InputPath    string
	ArtifactPath string
	LogDir       string

	GatewayKind string // http | mock
	RequestRPS  float64

	// Optional Postgres DSN; when set, every per-record outcome is also
	// inserted into the offboard_history table.
	HistoryDSN string

	AssumeYes bool
	Verbose   bool
}

var ErrMissingToken = errors.New("identity provider token is required (set --token or OFFBOARD_IDP_TOKEN)")

// Finalize resolves region presets and validates preconditions. It must be
// called before the config is handed to any stage.
func (c *Config) Finalize() error {
	c.Region = strings.ToLower(strings.TrimSpace(c.Region))
	ep, ok := regions[c.Region]
	if !ok {
		return fmt.Errorf("unknown region %q (supported: %s)", c.Region, strings.Join(RegionNames(), ", "))
	}

	if strings.TrimSpace(c.DirectoryBaseURL) == "" {
		c.DirectoryBaseURL = ep.Directory
	}
	if strings.TrimSpace(c.IDPBaseURL) == "" {
		c.IDPBaseURL = ep.IDP
	}
	c.DirectoryBaseURL = strings.TrimRight(c.DirectoryBaseURL, "/")
	c.IDPBaseURL = strings.TrimRight(c.IDPBaseURL, "/")

	c.GatewayKind = strings.ToLower(strings.TrimSpace(c.GatewayKind))
	if c.GatewayKind == "" {
		c.GatewayKind = "http"
	}

	c.Token = strings.TrimSpace(c.Token)
	if c.GatewayKind == "http" && c.Token == "" {
		return ErrMissingToken
	}

	if c.RequestRPS <= 0 {
		c.RequestRPS = 4.0
	}
	if strings.TrimSpace(c.LogDir) == "" {
		c.LogDir = "logs"
	}
	return nil
}

// RegionNames returns the supported region selectors, sorted.
func RegionNames() []string {
	return []string{"eu", "us"}
}
