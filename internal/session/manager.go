package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/api"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/store"
)

// Keys used in the local store.
const (
	TokenKey = "auth.token"
	UserKey  = "auth.user"
)

// TokenStore persists key/value pairs; *store.Store satisfies it.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Authenticator is the backend side of login; *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	SetToken(token string)
}

// Manager owns the current session. Every transition updates the API
// client's bearer token and the persisted copy.
type Manager struct {
	store  TokenStore
	client Authenticator
	logger *log.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current Session
}

// NewManager returns a manager starting Anonymous. Call Restore to pick up a saved token.
func NewManager(st TokenStore, client Authenticator, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Manager{
		store:   st,
		client:  client,
		logger:  logger,
		now:     time.Now,
		current: Anonymous{},
	}
}

// Current returns the active session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Actor names the signed-in user for audit and activity records.
func (m *Manager) Actor() string {
	if a, ok := m.Current().(Authenticated); ok {
		if a.User.Email != "" {
			return a.User.Email
		}
		return a.User.Name
	}
	return ""
}

func (m *Manager) set(s Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	m.client.SetToken(s.BearerToken())
}

// Restore loads a previously saved token. A missing or expired token yields Anonymous.
func (m *Manager) Restore(ctx context.Context) (Session, error) {
	token, err := m.store.Get(ctx, TokenKey)
	if errors.Is(err, store.ErrNotFound) || (err == nil && strings.TrimSpace(token) == "") {
		m.set(Anonymous{})
		return Anonymous{}, nil
	}
	if err != nil {
		m.set(Anonymous{})
		return Anonymous{}, fmt.Errorf("restore session: %w", err)
	}

	var user User
	if raw, err := m.store.Get(ctx, UserKey); err == nil {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			m.logger.Printf("ignoring unreadable saved user: %v", err)
		}
	}

	a := fromToken(token, user)
	if a.Expired(m.now()) {
		m.logger.Printf("saved token expired at %s; signing out", a.ExpiresAt.Format(time.RFC3339))
		_, err := m.Logout(ctx)
		return Anonymous{}, err
	}
	m.set(a)
	m.logger.Printf("restored session for %s", a.User.DisplayName())
	return a, nil
}

// Login exchanges credentials for a token and persists it.
// On failure the current session is left unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	resp, err := m.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return m.Current(), fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return m.Current(), fmt.Errorf("login: backend returned no token")
	}

	a := fromToken(resp.Token, User{Email: resp.User.Email, Name: resp.User.Name})
	if err := m.store.Put(ctx, TokenKey, resp.Token); err != nil {
		return m.Current(), fmt.Errorf("login: save token: %w", err)
	}
	if raw, err := json.Marshal(a.User); err == nil {
		if err := m.store.Put(ctx, UserKey, string(raw)); err != nil {
			m.logger.Printf("failed to save user: %v", err)
		}
	}
	m.set(a)
	m.logger.Printf("signed in as %s", a.User.DisplayName())
	return a, nil
}

// Logout forgets the token locally. The session becomes Anonymous even if
// the persisted copy could not be removed.
func (m *Manager) Logout(ctx context.Context) (Session, error) {
	m.set(Anonymous{})
	var errs []error
	if err := m.store.Delete(ctx, TokenKey); err != nil {
		errs = append(errs, err)
	}
	if err := m.store.Delete(ctx, UserKey); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return Anonymous{}, fmt.Errorf("logout: %w", err)
	}
	m.logger.Printf("signed out")
	return Anonymous{}, nil
}
