package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all analysis settings
type Config struct {
	// Repository settings
	Repo RepoConfig `yaml:"repo" mapstructure:"repo"`

	// Output settings
	Output OutputConfig `yaml:"output" mapstructure:"output"`

	// Classification rule table (empty = built-in rules)
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`

	// Invariant catalog file (empty = built-in catalog)
	CatalogFile string `yaml:"catalog_file" mapstructure:"catalog_file"`

	// GitHub settings (PR fallback input mode)
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`
}

type RepoConfig struct {
	// Path to the repository to analyze
	Path string `yaml:"path" mapstructure:"path"`
	// Blanket timeout around diff collection; on timeout the whole
	// analysis fails rather than partially completing
	CollectTimeout time.Duration `yaml:"collect_timeout" mapstructure:"collect_timeout"`
}

type OutputConfig struct {
	// Directory the two Markdown artifacts are written to
	Dir string `yaml:"dir" mapstructure:"dir"`
	// File names for the two artifacts
	ChangelogName string `yaml:"changelog_name" mapstructure:"changelog_name"`
	ReadmeName    string `yaml:"readme_name" mapstructure:"readme_name"`
}

type GitHubConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Repo: RepoConfig{
			Path:           ".",
			CollectTimeout: 60 * time.Second,
		},
		Output: OutputConfig{
			Dir:           ".",
			ChangelogName: "QA_CHANGELOG.md",
			ReadmeName:    "DEV_README.md",
		},
		GitHub: GitHubConfig{
			RateLimit: 1, // conservative, well under GitHub's 5000/hour
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("repo", cfg.Repo)
	v.SetDefault("output", cfg.Output)
	v.SetDefault("github", cfg.GitHub)

	v.SetEnvPrefix("CHANGESCRIBE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".changescribe")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".changescribe"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Missing config file is fine, defaults apply
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".changescribe", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if rateLimit := os.Getenv("GITHUB_RATE_LIMIT"); rateLimit != "" {
		if rps, err := strconv.Atoi(rateLimit); err == nil && rps > 0 {
			cfg.GitHub.RateLimit = rps
		}
	}
	if timeout := os.Getenv("CHANGESCRIBE_COLLECT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Repo.CollectTimeout = d
		}
	}
}
