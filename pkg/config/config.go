// Package config resolves the tool's configuration from an optional YAML
// file, CROWDSTRIKE_* environment variables, and command-line flags, in
// that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// API base URLs per CrowdStrike cloud region.
var cloudBaseURLs = map[string]string{
	"us-1":     "https://api.crowdstrike.com",
	"us-2":     "https://api.us-2.crowdstrike.com",
	"eu-1":     "https://api.eu-1.crowdstrike.com",
	"us-gov-1": "https://api.laggar.gcw.crowdstrike.com",
}

type Config struct {
	Falcon struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		Cloud        string `yaml:"cloud"` // "us-1"|"us-2"|"eu-1"|"us-gov-1"
		BaseURL      string `yaml:"base_url"`
	} `yaml:"falcon"`

	Report struct {
		ID string `yaml:"id"`
	} `yaml:"report"`

	Output struct {
		Dir string `yaml:"dir"` // "."
	} `yaml:"output"`

	Logging struct {
		Format string `yaml:"format"` // "text"|"json"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func Default() Config {
	var c Config
	c.Falcon.Cloud = "us-1"
	c.Output.Dir = "."
	c.Logging.Format = "text"
	c.Logging.Level = "info"
	return c
}

// Load builds a Config from defaults, an optional YAML file, and
// environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("CROWDSTRIKE_CLIENT_ID"); v != "" {
		c.Falcon.ClientID = v
	}
	if v := os.Getenv("CROWDSTRIKE_CLIENT_SECRET"); v != "" {
		c.Falcon.ClientSecret = v
	}
	if v := os.Getenv("CROWDSTRIKE_REPORT_ID"); v != "" {
		c.Report.ID = v
	}
	if v := os.Getenv("CROWDSTRIKE_CLOUD"); v != "" {
		c.Falcon.Cloud = v
	}
	return c, nil
}

// Validate fails fast on anything the pipeline cannot run without,
// naming every missing field in one pass.
func (c Config) Validate() error {
	var missing []string
	if c.Falcon.ClientID == "" {
		missing = append(missing, "falcon client_id (CROWDSTRIKE_CLIENT_ID)")
	}
	if c.Falcon.ClientSecret == "" {
		missing = append(missing, "falcon client_secret (CROWDSTRIKE_CLIENT_SECRET)")
	}
	if c.Report.ID == "" {
		missing = append(missing, "report id (CROWDSTRIKE_REPORT_ID or --report-id)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config validation failed, missing: %s", strings.Join(missing, ", "))
	}
	if c.Falcon.BaseURL == "" {
		if _, ok := cloudBaseURLs[c.Falcon.Cloud]; !ok {
			return fmt.Errorf("config validation failed: unknown falcon cloud %q", c.Falcon.Cloud)
		}
	}
	return nil
}

// APIBaseURL returns the explicit base URL if set, otherwise the URL for
// the configured cloud region.
func (c Config) APIBaseURL() string {
	if c.Falcon.BaseURL != "" {
		return strings.TrimSuffix(c.Falcon.BaseURL, "/")
	}
	return cloudBaseURLs[c.Falcon.Cloud]
}
