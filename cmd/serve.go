package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/ingest"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/metrics"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/ui"
)

var (
	noTUI    bool
	forceTUI bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the incident console",
	Long: `Start the incident console. By default this opens the terminal dashboard:

1. Sign in (the token is kept in the local database between runs)
2. Upload a log file or paste log text for analysis
3. Filter and search incidents, open one to read its root cause and runbook
4. Resolve or reopen incidents

With --no-tui the console runs headless: the drop folder (ingest.watch_dir)
is watched and every settled file is submitted for analysis.

Examples:
  # Start with TUI (default)
  copilot serve

  # Headless drop-folder mode with metrics
  copilot serve --no-tui --watch ./incoming --metrics-addr 127.0.0.1:9108`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Run in headless mode without TUI")
	serveCmd.Flags().BoolVar(&forceTUI, "force-tui", false, "Force TUI mode even in unsupported terminals")
	serveCmd.Flags().String("watch", "", "Drop folder to watch for log files")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	serveCmd.Flags().String("theme", "", "Color theme: dark, light, high-contrast")

	viper.BindPFlag("ingest.watch_dir", serveCmd.Flags().Lookup("watch"))
	viper.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))
	viper.BindPFlag("ui.theme", serveCmd.Flags().Lookup("theme"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	config := GetConfig()

	willUseTUI := determineTUIMode()

	// TUI mode keeps the terminal clean: logs go to a file, errors still reach stderr.
	var logger *log.Logger
	if willUseTUI {
		logFile := setupFileLogger()
		if logFile != nil {
			defer logFile.Close()
			logger = newLogger(io.MultiWriter(logFile, &errorFilterWriter{os.Stderr}), "[serve] ", config.Log.Level)
		} else {
			logger = newLogger(io.Discard, "", config.Log.Level)
		}
	} else {
		logger = newLogger(os.Stderr, "[serve] ", config.Log.Level)
	}
	logger.Printf("Starting copilot console (backend %s)", config.API.BaseURL)
	logger.Printf("Terminal info: %s", getTerminalInfo())

	a, err := newApp(ctx, config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if config.Metrics.Addr != "" {
		if err := startMetricsServer(ctx, config.Metrics.Addr, a, logger); err != nil {
			return err
		}
	}

	if config.Ingest.WatchDir != "" {
		startWatcher(ctx, a, config, logger)
	} else if !willUseTUI {
		return errors.New("headless mode needs a drop folder (--watch or ingest.watch_dir)")
	}

	if willUseTUI {
		uiLogger := log.New(logger.Writer(), "[UI] ", log.LstdFlags)
		console := ui.NewUI(ctx, a.dash, a.session, ui.Options{
			Theme:  config.UI.Theme,
			Logger: uiLogger,
		})
		if err := console.Start(ctx); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		logger.Println("TUI exited, cancelling background services...")
		cancel()
		return nil
	}

	logger.Println("Running in headless mode...")
	if err := a.requireSession(); err != nil {
		logger.Printf("Warning: %v; submissions may be rejected by the backend", err)
	}
	<-ctx.Done()
	logger.Println("Received shutdown signal")
	return nil
}

// startWatcher submits files dropped into the watch folder through the dashboard,
// so they land in the incident list, the audit trail and the activity feed.
func startWatcher(ctx context.Context, a *app, config Config, logger *log.Logger) {
	dir := resolvePathRelativeToBase(getWorkingDir(), config.Ingest.WatchDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Printf("Warning: Could not create watch directory %s: %v", dir, err)
	}
	w := ingest.NewWatcher(a.dash, ingest.WatchOptions{
		Dir:      dir,
		Patterns: config.Ingest.Patterns,
		Logger:   log.New(logger.Writer(), "[ingest] ", log.LstdFlags),
	})
	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("Folder watch error: %v", err)
		}
	}()
}

// startMetricsServer exposes /metrics until ctx is cancelled.
func startMetricsServer(ctx context.Context, addr string, a *app, logger *log.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Printf("Metrics listening on http://%s/metrics", ln.Addr())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return nil
}

// determineTUIMode decides between the dashboard and headless mode.
func determineTUIMode() bool {
	if noTUI {
		return false
	}
	return forceTUI || canInitializeTUI()
}

// canInitializeTUI tests if tcell can actually be initialized
func canInitializeTUI() bool {
	screen, err := tcell.NewScreen()
	if err != nil {
		return false
	}
	if err := screen.Init(); err != nil {
		return false
	}
	screen.Fini()
	return true
}

// getTerminalInfo returns a one-line summary of the terminal for the log.
func getTerminalInfo() string {
	var info []string
	if term := os.Getenv("TERM"); term != "" {
		info = append(info, "TERM="+term)
	} else {
		info = append(info, "TERM=<not set>")
	}
	if ct := os.Getenv("COLORTERM"); ct != "" {
		info = append(info, "COLORTERM="+ct)
	}
	if w, h := getTerminalSize(); w > 0 && h > 0 {
		info = append(info, fmt.Sprintf("Size=%dx%d", w, h))
	} else {
		info = append(info, "Size=unknown")
	}
	return strings.Join(info, ", ")
}

// setupFileLogger opens logs/copilot-ui.log for TUI mode.
func setupFileLogger() *os.File {
	logDir := filepath.Join(getWorkingDir(), "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil
	}
	logFile, err := os.OpenFile(filepath.Join(logDir, "copilot-ui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	return logFile
}
