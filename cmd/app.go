package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/api"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/bus"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/dashboard"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/metrics"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/session"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/store"
)

var errNotSignedIn = errors.New("not signed in (run `copilot login` first)")

// app bundles the pieces every console command is built from.
type app struct {
	cfg      Config
	logger   *log.Logger
	store    *store.Store
	client   *api.Client
	bus      bus.Bus
	metrics  *metrics.Collectors
	registry *prometheus.Registry
	session  *session.Manager
	dash     *dashboard.Dashboard
}

// newApp opens the local store, restores the saved session and assembles the
// dashboard. Callers must Close it.
func newApp(ctx context.Context, cfg Config, logger *log.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	apiLogger := log.New(io.Discard, "", 0)
	if cfg.Log.Level == "debug" {
		apiLogger = log.New(logger.Writer(), "[api] ", logger.Flags())
	}
	client, err := api.NewClient(api.Config{
		BaseURL:  cfg.API.BaseURL,
		Timeout:  cfg.API.Timeout,
		Recorder: m,
	}, apiLogger)
	if err != nil {
		return nil, err
	}

	path := resolvePathRelativeToBase(getWorkingDir(), cfg.Database.Path)
	st, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	eventBus := bus.NewBus(cfg.Redis.URL, logger)

	sess := session.NewManager(st, client, logger)
	if _, err := sess.Restore(ctx); err != nil {
		logger.Printf("Failed to restore session: %v", err)
	}

	dash := dashboard.New(client, dashboard.Options{
		Bus:              eventBus,
		Recorder:         m,
		IngestRecorder:   m,
		Audit:            st,
		Logger:           logger,
		Actor:            sess.Actor,
		CloseDelay:       cfg.UI.CloseDelay,
		ServerSideFilter: cfg.Filters.ServerSide,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		client:   client,
		bus:      eventBus,
		metrics:  m,
		registry: reg,
		session:  sess,
		dash:     dash,
	}, nil
}

// Close releases the bus and the store.
func (a *app) Close() error {
	return errors.Join(a.bus.Close(), a.store.Close())
}

// requireSession fails unless a user is signed in.
func (a *app) requireSession() error {
	if !session.IsAuthenticated(a.session.Current()) {
		return errNotSignedIn
	}
	return nil
}

// printNotices routes dashboard notices to w, one per line.
func (a *app) printNotices(w io.Writer) {
	a.dash.OnNotice(func(n dashboard.Notice) {
		fmt.Fprintf(w, "%s: %s\n", n.Level, n.Message)
	})
}

// newLogger builds a logger honoring log.level. warn and error keep only
// lines that look like failures.
func newLogger(w io.Writer, prefix, level string) *log.Logger {
	switch strings.ToLower(level) {
	case "warn", "error":
		w = &errorFilterWriter{writer: w}
	}
	return log.New(w, prefix, log.LstdFlags)
}

// getWorkingDir returns the current working directory.
// Falls back to the executable's directory if os.Getwd fails.
func getWorkingDir() string {
	if wd, err := os.Getwd(); err == nil && wd != "" {
		return wd
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolvePathRelativeToBase resolves a possibly relative path against a base directory.
// Absolute paths and :memory: are returned unchanged.
func resolvePathRelativeToBase(base, p string) string {
	if filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(base, strings.TrimPrefix(p, "./"))
}

// errorFilterWriter only writes error messages to the underlying writer
type errorFilterWriter struct {
	writer io.Writer
}

func (w *errorFilterWriter) Write(p []byte) (int, error) {
	lc := strings.ToLower(string(p))
	if strings.Contains(lc, "error") ||
		strings.Contains(lc, "failed") ||
		strings.Contains(lc, "panic") {
		return w.writer.Write(p)
	}
	return len(p), nil
}
