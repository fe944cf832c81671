package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcartmell/yard-perl-plugin/internal/scope"
	"github.com/mcartmell/yard-perl-plugin/pkg/pod"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "podextract.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Contains(t, cfg.Include, "**.pm")
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.ExampleBlocks)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/docs.db
workers: 2
comment_indent: single-space
example_blocks: false
base_keywords: [base, parent, Moose::extends]
debounce: 50ms
extra_scopes:
  - pattern: entity.name.method
    category: function-name
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/docs.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 50*time.Millisecond, cfg.Debounce)
	require.Len(t, cfg.ExtraScopes, 1)
	assert.Equal(t, "entity.name.method", cfg.ExtraScopes[0].Pattern)

	opts := cfg.ParserOptions()
	assert.Equal(t, pod.IndentSingleSpace, opts.CommentDialect.Indent)
	assert.False(t, opts.DocDialect.ExampleBlocks)
	assert.Equal(t, []string{"base", "parent", "Moose::extends"}, opts.BaseKeywords)
	assert.Equal(t, "namespace::clean", opts.CleanupKeyword)

	g, err := cfg.Grammar()
	require.NoError(t, err)
	assert.Equal(t, scope.CategoryFunctionName, g.Classify("entity.name.method.perl"))
	assert.Equal(t, scope.CategoryFunction, g.Classify("meta.function.named.perl"))
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PODEXTRACT_DB_PATH", "/env/index.db")
	t.Setenv("PODEXTRACT_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), writeConfig(t, "log_level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "/env/index.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel, "environment beats the config file")
}

func TestLoad_Flags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("workers", 1, "")
	fs.String("db-path", "", "")
	require.NoError(t, fs.Parse([]string{"--workers=3", "--db-path=/flag.db"}))

	v := viper.New()
	require.NoError(t, BindFlags(v, fs))

	cfg, err := Load(v, writeConfig(t, "workers: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "/flag.db", cfg.DBPath)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DBPath:    "x.db",
			LogLevel:  "info",
			Workers:   1,
			BatchSize: 1,
			Include:   []string{"**.pm"},
		}
	}

	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"no batch", func(c *Config) { c.BatchSize = 0 }},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad indent", func(c *Config) { c.CommentIndent = "tabs" }},
		{"bad glob", func(c *Config) { c.Exclude = []string{"[unclosed"} }},
		{"bad category", func(c *Config) {
			c.ExtraScopes = []ScopeRule{{Pattern: "meta.x", Category: "widget"}}
		}},
		{"empty pattern", func(c *Config) {
			c.ExtraScopes = []ScopeRule{{Category: "module"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestConfig_Builders(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	ic := cfg.IndexerConfig()
	assert.Equal(t, cfg.Workers, ic.Workers)
	assert.Equal(t, cfg.BatchSize, ic.BatchSize)
	assert.Equal(t, cfg.Include, ic.Include)
	assert.Equal(t, []string{"blib/**", "local/**", "_build/**"}, ic.Exclude)

	p, err := cfg.NewParser(nil)
	require.NoError(t, err)
	result := p.ParseSource("A.pm", []byte("package A;\nsub go { 1 }\n"), p.TokenizerFor("A.pm"))
	assert.Len(t, result.Modules(), 1)
	assert.Len(t, result.Functions(), 1)

	cfg.ExtraScopes = []ScopeRule{{Pattern: "meta.thing", Category: "gizmo"}}
	_, err = cfg.NewParser(nil)
	assert.Error(t, err)
}
