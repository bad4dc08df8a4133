package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/optiserve/geocoord/internal/coordinator"
	"github.com/optiserve/geocoord/internal/geo"
)

// SiteConfig holds site-level settings loaded from geocoord.yml.
type SiteConfig struct {
	// Site is the base URL of the site under analysis.
	Site string `yaml:"site,omitempty"`

	// CrawlExport points at the crawl export JSON to analyze.
	CrawlExport string `yaml:"crawlExport,omitempty"`

	// HistoryDB is the path of the run-history SQLite database.
	HistoryDB string `yaml:"historyDB,omitempty"`

	// Business is the canonical business identity agents check pages
	// against.
	Business geo.BusinessContext `yaml:"business,omitempty"`

	// RemoteAgents maps agent names to HTTP endpoints. Named remote
	// agents replace the built-in analyzer of the same role.
	RemoteAgents map[string]string `yaml:"remoteAgents,omitempty"`

	// Coordinator overrides scheduling and resolution options; zero
	// fields keep their defaults.
	Coordinator CoordinatorConfig `yaml:"coordinator,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`
}

// CoordinatorConfig is the YAML shape of coordinator.Options. Timeouts are
// Go duration strings ("30s", "5m") rather than raw nanosecond counts.
type CoordinatorConfig struct {
	coordinator.Options `yaml:",inline"`

	PerCallTimeout string `yaml:"perCallTimeout,omitempty"`
	OverallTimeout string `yaml:"overallTimeout,omitempty"`
}

// Resolve converts the YAML shape into runnable coordinator options.
func (c CoordinatorConfig) Resolve() (coordinator.Options, error) {
	opts := c.Options

	if c.PerCallTimeout != "" {
		d, err := time.ParseDuration(c.PerCallTimeout)
		if err != nil {
			return opts, fmt.Errorf("config: perCallTimeout: %w", err)
		}
		opts.PerCallTimeout = d
	}
	if c.OverallTimeout != "" {
		d, err := time.ParseDuration(c.OverallTimeout)
		if err != nil {
			return opts, fmt.Errorf("config: overallTimeout: %w", err)
		}
		opts.OverallTimeout = d
	}

	return opts, nil
}

// Load attempts to read geocoord.yml or geocoord.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*SiteConfig, error) {
	for _, name := range []string{"geocoord.yml", "geocoord.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg SiteConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		return &cfg, nil
	}
	return &SiteConfig{}, nil
}
