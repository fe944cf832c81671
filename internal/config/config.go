// Package config loads podextract settings from a config file, the
// environment and command-line flags.
//
// Settings are resolved by viper in the usual order: flags bound with
// BindFlags, then PODEXTRACT_* environment variables, then
// podextract.yaml, then the defaults below.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcartmell/yard-perl-plugin/internal/indexer"
	"github.com/mcartmell/yard-perl-plugin/internal/logging"
	"github.com/mcartmell/yard-perl-plugin/internal/parser"
	"github.com/mcartmell/yard-perl-plugin/internal/scope"
	"github.com/mcartmell/yard-perl-plugin/pkg/pod"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "PODEXTRACT"

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds every tunable setting
type Config struct {
	DBPath    string `mapstructure:"db_path"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Workers   int      `mapstructure:"workers"`
	BatchSize int      `mapstructure:"batch_size"`
	Include   []string `mapstructure:"include"`
	Exclude   []string `mapstructure:"exclude"`

	CommentIndent  string   `mapstructure:"comment_indent"`
	ExampleBlocks  bool     `mapstructure:"example_blocks"`
	BaseKeywords   []string `mapstructure:"base_keywords"`
	CleanupKeyword string   `mapstructure:"cleanup_keyword"`

	// ExtraScopes adds scope rules for tokenizers that emit scope names the
	// Perl grammar does not know
	ExtraScopes []ScopeRule `mapstructure:"extra_scopes"`

	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Debounce  time.Duration `mapstructure:"debounce"`
}

// ScopeRule binds a scope pattern such as meta.class.moose to a category
// name such as module
type ScopeRule struct {
	Pattern  string `mapstructure:"pattern"`
	Category string `mapstructure:"category"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_path", DefaultDBPath())
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("batch_size", 20)
	v.SetDefault("include", []string{"**.pm", "**.pl", "**.pod", "**.t"})
	v.SetDefault("exclude", []string{"blib/**", "local/**", "_build/**"})
	v.SetDefault("comment_indent", pod.IndentUniform.String())
	v.SetDefault("example_blocks", true)
	v.SetDefault("base_keywords", []string{"base", "parent"})
	v.SetDefault("cleanup_keyword", "namespace::clean")
	v.SetDefault("cache_size", 1000)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("debounce", 200*time.Millisecond)
}

// DefaultDBPath is ~/.podextract/index.db, or index.db in the working
// directory when the home directory is unknown
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "index.db"
	}
	return filepath.Join(home, ".podextract", "index.db")
}

// Load reads configuration into a Config. An empty cfgFile searches for
// podextract.yaml in the working directory and ~/.config/podextract; a
// missing search-path file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("podextract")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "podextract"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BindFlags binds each flag in fs to the key of the same name with dashes
// replaced by underscores
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// Validate checks every setting that can be rejected up front
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is empty", ErrInvalid)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be at least 1, got %d", ErrInvalid, c.BatchSize)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must not be negative", ErrInvalid)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalid, c.LogFormat)
	}
	switch strings.ToLower(strings.TrimSpace(c.CommentIndent)) {
	case "", "none", "single", "single-space", "uniform":
	default:
		return fmt.Errorf("%w: comment_indent %q", ErrInvalid, c.CommentIndent)
	}
	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("%w: pattern %q: %v", ErrInvalid, p, err)
		}
	}
	if _, err := c.Grammar(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ParserOptions converts the extraction settings into parser options
func (c *Config) ParserOptions() parser.Options {
	opts := parser.DefaultOptions()
	opts.CommentDialect.Indent = pod.ParseIndentPolicy(c.CommentIndent)
	opts.DocDialect.ExampleBlocks = c.ExampleBlocks
	if len(c.BaseKeywords) > 0 {
		opts.BaseKeywords = c.BaseKeywords
	}
	if c.CleanupKeyword != "" {
		opts.CleanupKeyword = c.CleanupKeyword
	}
	return opts
}

// Grammar returns the Perl grammar extended with ExtraScopes. Extra rules
// are checked after the built-in ones.
func (c *Config) Grammar() (*scope.Grammar, error) {
	rules := scope.PerlGrammar().Rules()
	for _, r := range c.ExtraScopes {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("extra scope with category %q has no pattern", r.Category)
		}
		cat, err := scope.ParseCategory(r.Category)
		if err != nil {
			return nil, fmt.Errorf("extra scope %q: %w", r.Pattern, err)
		}
		rules = append(rules, scope.Rule{Pattern: scope.ParsePath(r.Pattern), Category: cat})
	}
	return scope.NewGrammar(rules...), nil
}

// NewParser builds a parser from Grammar and ParserOptions
func (c *Config) NewParser(logger *slog.Logger) (*parser.Parser, error) {
	g, err := c.Grammar()
	if err != nil {
		return nil, err
	}
	return parser.NewWithOptions(g, c.ParserOptions(), logger), nil
}

// IndexerConfig converts the file selection settings
func (c *Config) IndexerConfig() *indexer.Config {
	return &indexer.Config{
		Workers:   c.Workers,
		BatchSize: c.BatchSize,
		Include:   c.Include,
		Exclude:   c.Exclude,
	}
}
