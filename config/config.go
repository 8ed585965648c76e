package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Field-extraction engines
	EnginePdftk  = "pdftk"
	EnginePdfcpu = "pdfcpu"

	// Default values
	DefaultPort        = 8080
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultPdftkPath   = "pdftk"
	DefaultFillTimeout = 30 * time.Second
)

// Config holds all configuration for the form-fill server
type Config struct {
	Port         int
	TemplateRoot string // root directory for PDF templates
	DocMapFile   string // YAML table mapping document IDs to template filenames
	WebDir       string // static form UI assets

	Engine      string // "pdftk" or "pdfcpu"
	PdftkPath   string
	FillTimeout time.Duration

	LogLevel  string
	LogFormat string

	Minio MinioConfig
}

// MinioConfig describes an optional object-storage source for templates.
// Sync is skipped entirely when Endpoint is empty.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:         DefaultPort,
		TemplateRoot: "./templates",
		DocMapFile:   "docmap.yaml",
		WebDir:       "./web",
		Engine:       EnginePdftk,
		PdftkPath:    DefaultPdftkPath,
		FillTimeout:  DefaultFillTimeout,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	}
}

// LoadFromFlags parses command line flags and environment variables
// (FORMFILL_* prefix) and returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("FORMFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", cfg.Port)
	v.SetDefault("template_root", cfg.TemplateRoot)
	v.SetDefault("docmap", cfg.DocMapFile)
	v.SetDefault("webdir", cfg.WebDir)
	v.SetDefault("engine", cfg.Engine)
	v.SetDefault("pdftk", cfg.PdftkPath)
	v.SetDefault("fill_timeout", cfg.FillTimeout)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("logformat", cfg.LogFormat)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.prefix", "")
	v.SetDefault("minio.use_ssl", false)

	flags := pflag.NewFlagSet("fillserver", pflag.ContinueOnError)
	flags.Int("port", cfg.Port, "HTTP listening port")
	flags.String("template-root", cfg.TemplateRoot, "Directory containing PDF templates")
	flags.String("docmap", cfg.DocMapFile, "Document ID to template filename table (YAML)")
	flags.String("webdir", cfg.WebDir, "Directory containing the static form UI")
	flags.String("engine", cfg.Engine, "Field extraction engine: 'pdftk' or 'pdfcpu'")
	flags.String("pdftk", cfg.PdftkPath, "Path to the pdftk executable")
	flags.Duration("fill-timeout", cfg.FillTimeout, "Timeout for one fill subprocess")
	flags.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("logformat", cfg.LogFormat, "Log format (text, json)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, err
	}

	bindings := map[string]string{
		"port":          "port",
		"template_root": "template-root",
		"docmap":        "docmap",
		"webdir":        "webdir",
		"engine":        "engine",
		"pdftk":         "pdftk",
		"fill_timeout":  "fill-timeout",
		"loglevel":      "loglevel",
		"logformat":     "logformat",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	populate(cfg, v)

	// Template root is the containment boundary; work with it in
	// absolute form from the start.
	if abs, err := filepath.Abs(cfg.TemplateRoot); err == nil {
		cfg.TemplateRoot = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func populate(cfg *Config, v *viper.Viper) {
	cfg.Port = v.GetInt("port")
	cfg.TemplateRoot = v.GetString("template_root")
	cfg.DocMapFile = v.GetString("docmap")
	cfg.WebDir = v.GetString("webdir")
	cfg.Engine = v.GetString("engine")
	cfg.PdftkPath = v.GetString("pdftk")
	cfg.FillTimeout = v.GetDuration("fill_timeout")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.LogFormat = v.GetString("logformat")
	cfg.Minio.Endpoint = v.GetString("minio.endpoint")
	cfg.Minio.AccessKey = v.GetString("minio.access_key")
	cfg.Minio.SecretKey = v.GetString("minio.secret_key")
	cfg.Minio.Bucket = v.GetString("minio.bucket")
	cfg.Minio.Prefix = v.GetString("minio.prefix")
	cfg.Minio.UseSSL = v.GetBool("minio.use_ssl")
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.TemplateRoot == "" {
		return fmt.Errorf("template root must not be empty")
	}
	if c.Engine != EnginePdftk && c.Engine != EnginePdfcpu {
		return fmt.Errorf("engine must be %q or %q, got %q", EnginePdftk, EnginePdfcpu, c.Engine)
	}
	if c.FillTimeout <= 0 {
		return fmt.Errorf("fill timeout must be positive, got %s", c.FillTimeout)
	}
	if c.Minio.Endpoint != "" && c.Minio.Bucket == "" {
		return fmt.Errorf("minio endpoint configured without a bucket")
	}
	return nil
}

// SyncEnabled reports whether template sync from object storage is configured
func (c *Config) SyncEnabled() bool {
	return c.Minio.Endpoint != ""
}
