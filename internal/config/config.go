// Package config loads muniresults settings from defaults, a YAML file,
// MUNIRESULTS_ environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"muniresults/internal/catalog"
	"muniresults/internal/fetcher"
	"muniresults/internal/models"
	"muniresults/internal/resource"
)

const (
	EnvPrefix      = "MUNIRESULTS_"
	DefaultAddr    = ":8080"
	LogFormatJSON  = "json"
	LogFormatText  = "console"
	lenientFlag    = "lenient"
	configFileBase = "muniresults"
)

// Config is the merged configuration of one invocation
type Config struct {
	Candidacy   string        `koanf:"candidacy"`
	Format      string        `koanf:"format"`
	Catalog     string        `koanf:"catalog"`
	OutputDir   string        `koanf:"output_dir"`
	Year        int           `koanf:"year"`
	ElectionID  int           `koanf:"election_id"`
	Host        string        `koanf:"host"`
	Strict      bool          `koanf:"strict"`
	Limit       int           `koanf:"limit"`
	HTTPTimeout time.Duration `koanf:"http_timeout"`
	UserAgent   string        `koanf:"user_agent"`
	ArchiveDir  string        `koanf:"archive_dir"`
	Addr        string        `koanf:"addr"`
	Verbose     bool          `koanf:"verbose"`
	LogFormat   string        `koanf:"log_format"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

// ConfigurationError reports a missing or invalid setting
type ConfigurationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("invalid configuration %s=%q: %s", e.Key, e.Value, e.Reason)
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"candidacy":    "",
		"format":       "",
		"catalog":      catalog.DefaultPath,
		"output_dir":   ".",
		"year":         resource.DefaultYear,
		"election_id":  resource.DefaultElectionID,
		"host":         resource.DefaultHost,
		"strict":       true,
		"limit":        0,
		"http_timeout": time.Duration(0),
		"user_agent":   fetcher.DefaultUserAgent,
		"archive_dir":  "",
		"addr":         DefaultAddr,
		"verbose":      false,
		"log_format":   LogFormatJSON,
	}
}

// findConfigFile returns explicit if set, otherwise the first muniresults.y(a)ml in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{configFileBase + ".yaml", configFileBase + ".yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load merges the configuration layers.
// Precedence (highest to lowest): changed flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// MUNIRESULTS_OUTPUT_DIR -> output_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// --lenient is the inverse of the strict setting
			if key == lenientFlag {
				lenient, _ := flags.GetBool(f.Name)
				return "strict", !lenient
			}
			if key == "config" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used
	return &cfg, nil
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if c.Year <= 0 {
		return &ConfigurationError{Key: "year", Value: fmt.Sprint(c.Year), Reason: "must be positive"}
	}
	if c.ElectionID <= 0 {
		return &ConfigurationError{Key: "election_id", Value: fmt.Sprint(c.ElectionID), Reason: "must be positive"}
	}
	if strings.TrimSpace(c.Host) == "" {
		return &ConfigurationError{Key: "host", Reason: "is required"}
	}
	if c.Limit < 0 {
		return &ConfigurationError{Key: "limit", Value: fmt.Sprint(c.Limit), Reason: "must not be negative"}
	}
	if c.HTTPTimeout < 0 {
		return &ConfigurationError{Key: "http_timeout", Value: c.HTTPTimeout.String(), Reason: "must not be negative"}
	}
	switch c.LogFormat {
	case LogFormatJSON, LogFormatText:
	default:
		return &ConfigurationError{Key: "log_format", Value: c.LogFormat, Reason: "must be json or console"}
	}
	return nil
}

// ValidateScrape additionally requires a candidacy, an export format and a catalog.
func (c *Config) ValidateScrape() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := c.CandidacyType(); err != nil {
		return err
	}
	if _, err := c.ExportFormat(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Catalog) == "" {
		return &ConfigurationError{Key: "catalog", Reason: "is required"}
	}
	return nil
}

// CandidacyType parses the candidacy setting.
func (c *Config) CandidacyType() (models.CandidacyType, error) {
	if strings.TrimSpace(c.Candidacy) == "" {
		return "", &ConfigurationError{Key: "candidacy", Reason: "is required (mayor or councilor)"}
	}
	ct, err := models.ParseCandidacyType(c.Candidacy)
	if err != nil {
		return "", &ConfigurationError{Key: "candidacy", Value: c.Candidacy, Reason: "must be mayor or councilor"}
	}
	return ct, nil
}

// ExportFormat parses the format setting.
func (c *Config) ExportFormat() (models.ExportFormat, error) {
	if strings.TrimSpace(c.Format) == "" {
		return "", &ConfigurationError{Key: "format", Reason: "is required (csv or json)"}
	}
	f, err := models.ParseExportFormat(c.Format)
	if err != nil {
		return "", &ConfigurationError{Key: "format", Value: c.Format, Reason: "must be csv or json"}
	}
	return f, nil
}

// Template returns the resource URL template for the configured election.
// The host may carry an explicit scheme, e.g. http://localhost:9000.
func (c *Config) Template() resource.Template {
	t := resource.Template{
		Host:       c.Host,
		Year:       c.Year,
		ElectionID: c.ElectionID,
	}
	if scheme, host, ok := strings.Cut(c.Host, "://"); ok {
		t.Scheme = scheme
		t.Host = host
	}
	t.Host = strings.TrimSuffix(t.Host, "/")
	return t
}
