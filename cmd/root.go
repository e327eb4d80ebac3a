package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/ingest"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/llm"
)

var (
	cfgFile  string
	apiURL   string
	dbPath   string
	redisURL string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "Terminal console for the AIOps Incident Co-Pilot",
	Long: `copilot is a terminal console for the AIOps Incident Co-Pilot analysis service.

Features:
- Upload log files or paste raw log text for analysis
- Browse, filter and search detected incidents
- Inspect root cause and runbook steps, resolve or reopen incidents
- Drop-folder ingestion, Redis Streams activity feed, Prometheus metrics
- A local development backend for running the console without the service`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.copilot.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "Analysis backend base URL")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "./data/copilot.db", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis URL for the activity feed (empty disables it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("redis.url", rootCmd.PersistentFlags().Lookup("redis"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory and CWD with name ".copilot" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".copilot")
	}

	// COPILOT_API_BASE_URL, COPILOT_UI_THEME, ...
	viper.SetEnvPrefix("copilot")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", time.Duration(0))
	v.SetDefault("database.path", "./data/copilot.db")
	v.SetDefault("redis.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("ingest.watch_dir", "")
	v.SetDefault("ingest.patterns", ingest.DefaultPatterns)
	v.SetDefault("ui.theme", "dark")
	v.SetDefault("ui.close_delay", 300*time.Millisecond)
	v.SetDefault("filters.server_side", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("devserver.bind", "127.0.0.1:8080")
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", 60*time.Second)
}

// GetConfig returns the current configuration values
func GetConfig() Config {
	return configFrom(viper.GetViper())
}

func configFrom(v *viper.Viper) Config {
	return Config{
		API: APIConfig{
			BaseURL: v.GetString("api.base_url"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis.url"),
		},
		Log: LogConfig{
			Level: strings.ToLower(v.GetString("log.level")),
		},
		Ingest: IngestConfig{
			WatchDir: v.GetString("ingest.watch_dir"),
			Patterns: v.GetStringSlice("ingest.patterns"),
		},
		UI: UIConfig{
			Theme:      v.GetString("ui.theme"),
			CloseDelay: v.GetDuration("ui.close_delay"),
		},
		Filters: FiltersConfig{
			ServerSide: v.GetBool("filters.server_side"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		DevServer: DevServerConfig{
			Bind: v.GetString("devserver.bind"),
		},
		LLM: llm.Config{
			Provider: v.GetString("llm.provider"),
			Endpoint: v.GetString("llm.endpoint"),
			Model:    v.GetString("llm.model"),
			APIKey:   v.GetString("llm.api_key"),
			Timeout:  v.GetDuration("llm.timeout"),
		},
	}
}

// Config represents the application configuration
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	UI        UIConfig        `mapstructure:"ui"`
	Filters   FiltersConfig   `mapstructure:"filters"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	DevServer DevServerConfig `mapstructure:"devserver"`
	LLM       llm.Config      `mapstructure:"llm"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type IngestConfig struct {
	WatchDir string   `mapstructure:"watch_dir"`
	Patterns []string `mapstructure:"patterns"`
}

type UIConfig struct {
	Theme      string        `mapstructure:"theme"`
	CloseDelay time.Duration `mapstructure:"close_delay"`
}

type FiltersConfig struct {
	ServerSide bool `mapstructure:"server_side"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type DevServerConfig struct {
	Bind string `mapstructure:"bind"`
}
