package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/devserver"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/llm"
)

var (
	devRequireAuth bool
	devPassword    string
	devJWTSecret   string
	devTokenTTL    time.Duration
	devRPS         int
	devBurst       int
	devMaxBody     int64
	devSeed        bool
)

// devserverCmd runs an in-memory analysis backend.
var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local in-memory analysis backend",
	Long: `Run a local stand-in for the analysis service. It implements login,
log upload, analysis (a rule-based detector for 5xx errors, OOM kills,
dependency timeouts and authentication failures), incident listing and
status updates, keeping everything in memory.

With --llm-provider (or llm.provider) each detected incident's root cause
and runbook are rewritten by a language model through Ollama or any
OpenRouter/OpenAI-compatible endpoint. Model failures keep the rule text.

Examples:
  # Start on the default address
  copilot devserver

  # Require a password and a valid token, with sample incidents preloaded
  copilot devserver --require-auth --password s3cret --seed

  # Bind to all interfaces with rate limiting
  copilot devserver --bind 0.0.0.0:8080 --rps 20 --burst 40

  # Explain incidents with a local Ollama model
  copilot devserver --llm-provider ollama --llm-model qwen3:0.6b`,
	Args: cobra.NoArgs,
	RunE: runDevServer,
}

func init() {
	rootCmd.AddCommand(devserverCmd)

	devserverCmd.Flags().String("bind", "127.0.0.1:8080", "Address to listen on")
	devserverCmd.Flags().BoolVar(&devRequireAuth, "require-auth", true, "Require a bearer token on /api routes")
	devserverCmd.Flags().StringVar(&devPassword, "password", "", "Only accept this password at login (any password when empty)")
	devserverCmd.Flags().StringVar(&devJWTSecret, "jwt-secret", "", "HMAC secret for issued tokens (random when empty)")
	devserverCmd.Flags().DurationVar(&devTokenTTL, "token-ttl", 12*time.Hour, "Lifetime of issued tokens")
	devserverCmd.Flags().IntVar(&devRPS, "rps", 0, "Max requests per second (0 = unlimited)")
	devserverCmd.Flags().IntVar(&devBurst, "burst", 0, "Rate limiter burst (defaults to --rps)")
	devserverCmd.Flags().Int64Var(&devMaxBody, "max-body", 10*1024*1024, "Maximum request body size in bytes")
	devserverCmd.Flags().BoolVar(&devSeed, "seed", false, "Preload incidents detected from the bundled sample logs")
	devserverCmd.Flags().String("llm-provider", "", "Explain incidents with a language model: ollama, openrouter")
	devserverCmd.Flags().String("llm-model", "", "Model name for --llm-provider")

	viper.BindPFlag("devserver.bind", devserverCmd.Flags().Lookup("bind"))
	viper.BindPFlag("llm.provider", devserverCmd.Flags().Lookup("llm-provider"))
	viper.BindPFlag("llm.model", devserverCmd.Flags().Lookup("llm-model"))
}

func runDevServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	logger := newLogger(os.Stderr, "[devserver] ", config.Log.Level)

	var enricher devserver.Enricher
	writeTimeout := 30 * time.Second
	if config.LLM.Enabled() {
		provider, err := llm.Build(config.LLM, logger)
		if err != nil {
			return fmt.Errorf("llm: %w", err)
		}
		if err := llm.TryHealthCheck(ctx, provider); err != nil {
			logger.Printf("Warning: %s health check failed: %v", provider.Name(), err)
		}
		enricher = llm.NewExplainer(provider, logger)
		// leave room for a couple of model calls per analysis
		writeTimeout += 2 * config.LLM.Timeout
		logger.Printf("Explaining incidents with %s", provider.Name())
	}

	srv, err := devserver.New(devserver.Options{
		Bind:         config.DevServer.Bind,
		RequireAuth:  devRequireAuth,
		Password:     devPassword,
		JWTSecret:    devJWTSecret,
		TokenTTL:     devTokenTTL,
		RPS:          devRPS,
		Burst:        devBurst,
		MaxBodyBytes: devMaxBody,
		WriteTimeout: writeTimeout,
		Logger:       logger,
		Enricher:     enricher,
	})
	if err != nil {
		return err
	}
	if devSeed {
		seeded := sampleIncidents(time.Now())
		srv.Seed(seeded)
		logger.Printf("Seeded %d incident(s)", len(seeded))
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dev backend: %w", err)
	}

	<-ctx.Done()
	logger.Println("Received shutdown signal")
	return nil
}
