// Package devserver is an in-memory stand-in for the analysis backend, so the
// console can be run and demoed without the production service.
package devserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// Options controls the development server.
type Options struct {
	// Bind address, e.g. "127.0.0.1:8080"
	Bind string
	// RequireAuth rejects /api requests without a valid bearer token (login excepted).
	RequireAuth bool
	// Password, when set, is the only password login accepts. Any password works otherwise.
	Password string
	// JWTSecret signs issued tokens; random when empty.
	JWTSecret string
	// TokenTTL is the lifetime of issued tokens; defaults to 12h.
	TokenTTL time.Duration
	// RPS is max requests per second (approximate). 0 disables rate limiting.
	RPS int
	// Burst is the token bucket size. If 0 and RPS>0, defaults to RPS.
	Burst int
	// MaxBodyBytes caps request body size; defaults to 10 MiB.
	MaxBodyBytes int64
	// WriteTimeout bounds each response; defaults to 30s. Enrichment of an
	// analysis stops at three quarters of it so the reply still goes out.
	WriteTimeout time.Duration
	Logger       *log.Logger
	// Now is the clock; time.Now when nil.
	Now func() time.Time
	// Enricher, when set, rewrites the root cause and runbook of each
	// detected incident (e.g. with a language model). Failures keep the
	// detector's text.
	Enricher Enricher
}

// Enricher refines a detected incident using the submitted log text.
type Enricher interface {
	Enrich(ctx context.Context, inc incident.Incident, logs string) (incident.Incident, error)
}

// Server implements the backend's REST surface in memory.
type Server struct {
	opts    Options
	secret  []byte
	limiter *limiter
	logger  *log.Logger
	srv     *http.Server
	started int32

	mu        sync.RWMutex
	uploads   map[string]string
	incidents []incident.Incident
}

type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// New constructs a development server.
func New(opts Options) (*Server, error) {
	if opts.Bind == "" {
		opts.Bind = "127.0.0.1:8080"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 * 1024 * 1024 // 10 MiB
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[devserver] ", log.LstdFlags)
	}

	secret := []byte(opts.JWTSecret)
	if len(secret) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		secret = []byte(hex.EncodeToString(buf))
	}

	s := &Server{
		opts:    opts,
		secret:  secret,
		limiter: newLimiter(opts.RPS, opts.Burst),
		logger:  logger,
		uploads: make(map[string]string),
	}
	s.srv = &http.Server{
		Addr:         opts.Bind,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("POST /api/upload-log", s.guard(s.handleUpload))
	mux.Handle("POST /api/analyze", s.guard(s.handleAnalyze))
	mux.Handle("GET /api/incidents", s.guard(s.handleListIncidents))
	mux.Handle("PATCH /api/incidents/{id}", s.guard(s.handleUpdateIncident))
	return s.withLimit(s.withLog(mux))
}

// Start binds and serves in the background; ctx cancellation shuts it down.
func (s *Server) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return errors.New("devserver already started")
	}
	ln, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Bind, err)
	}
	s.logger.Printf("dev backend listening on http://%s rps=%d auth=%v", ln.Addr(), s.opts.RPS, s.opts.RequireAuth)

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("graceful shutdown failed: %v", err)
		}
		s.limiter.Close()
	}()
	return nil
}

// Seed replaces the stored incidents, newest first.
func (s *Server) Seed(list []incident.Incident) {
	s.mu.Lock()
	s.incidents = append([]incident.Incident(nil), list...)
	s.mu.Unlock()
}

func (s *Server) withLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Printf("%s %s status=%d id=%s remote=%s dur=%s",
			r.Method, r.URL.Path, sw.status, r.Header.Get("X-Request-ID"), remoteIP(r.RemoteAddr), time.Since(start).Round(time.Millisecond))
	})
}

// guard enforces bearer auth when RequireAuth is set.
func (s *Server) guard(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.RequireAuth {
			auth := r.Header.Get("Authorization")
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if !strings.HasPrefix(auth, "Bearer ") || raw == "" || s.verify(raw) != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="copilot"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		h(w, r)
	})
}

func (s *Server) verify(raw string) error {
	_, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.opts.Now),
	)
	return err
}

func (s *Server) issue(email, name string) (string, error) {
	now := s.opts.Now()
	claims := tokenClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    "copilot-devserver",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "copilot-devserver"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := s.decode(w, r, &creds); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}
	if s.opts.Password != "" && creds.Password != s.opts.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	name := displayName(email)
	token, err := s.issue(email, name)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  map[string]string{"email": email, "name": name},
	})
}

// displayName turns "ana.lima@example.com" into "Ana Lima".
func displayName(email string) string {
	local := email
	if i := strings.Index(local, "@"); i > 0 {
		local = local[:i]
	}
	parts := strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '_' || r == '-' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return email
	}
	return strings.Join(parts, " ")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(string(data)) == "" {
		http.Error(w, "Empty file", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.uploads[id] = string(data)
	s.mu.Unlock()

	s.logger.Printf("stored upload %s (%s, %d bytes)", id, hdr.Filename, len(data))
	writeJSON(w, http.StatusOK, map[string]string{"uploadId": id})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UploadID string `json:"uploadId"`
		LogText  string `json:"logText"`
	}
	if err := s.decode(w, r, &req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	var text string
	switch {
	case req.LogText != "":
		text = req.LogText
	case req.UploadID != "":
		s.mu.RLock()
		content, ok := s.uploads[req.UploadID]
		s.mu.RUnlock()
		if !ok {
			http.Error(w, "Log file not found", http.StatusNotFound)
			return
		}
		text = content
	default:
		http.Error(w, "Either uploadId or logText must be provided", http.StatusBadRequest)
		return
	}

	found := Analyze(text, s.opts.Now())
	if s.opts.Enricher != nil {
		s.enrich(r.Context(), found, text)
	}

	s.mu.Lock()
	s.incidents = append(append([]incident.Incident(nil), found...), s.incidents...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"incidents": found})
}

// enrich rewrites found in place until the enrichment deadline passes;
// incidents not reached keep the detector's text.
func (s *Server) enrich(ctx context.Context, found []incident.Incident, text string) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout*3/4)
	defer cancel()
	for i := range found {
		if ctx.Err() != nil {
			s.logger.Printf("enrichment deadline reached; %d incident(s) keep detector text", len(found)-i)
			return
		}
		if enriched, err := s.opts.Enricher.Enrich(ctx, found[i], text); err == nil {
			found[i] = enriched
		}
	}
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	status, err := incident.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	severity, err := incident.ParseSeverityFilter(r.URL.Query().Get("severity"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	list := incident.Filter(s.incidents, incident.Criteria{Status: status, Severity: severity})
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"incidents": list})
}

func (s *Server) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := incident.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stamp := s.opts.Now().UTC().Format(time.RFC3339)
	found := false
	s.mu.Lock()
	for i := range s.incidents {
		if s.incidents[i].IncidentID == id {
			s.incidents[i].Status = status
			s.incidents[i].LastUpdatedAt = stamp
			found = true
		}
	}
	s.mu.Unlock()

	if !found {
		http.Error(w, "incident not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// remoteIP extracts ip from host:port
func remoteIP(addr string) string {
	if i := strings.LastIndex(addr, ":"); i != -1 {
		return addr[:i]
	}
	return addr
}
