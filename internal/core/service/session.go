package service

import (
	"context"
	"sync"

	"icomm2mqtt/pkg/icomm"

	"go.uber.org/zap"
)

// SessionManager caches the bearer token between API calls. The token has no
// known expiry: it is reused until a call fails with ErrUnauthorized, at
// which point the caller invalidates the session and the next EnsureSession
// performs a fresh login.
type SessionManager struct {
	mu       sync.Mutex
	client   icomm.Service
	email    string
	password string
	token    string
	logger   *zap.Logger
}

func NewSessionManager(client icomm.Service, email, password string, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		client:   client,
		email:    email,
		password: password,
		logger:   logger.With(zap.String("component", "session")),
	}
}

// EnsureSession returns the cached token, logging in first if there is none.
func (s *SessionManager) EnsureSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	s.logger.Debug("session: logging in")
	tokens, err := s.client.Login(ctx, s.email, s.password)
	if err != nil {
		return "", err
	}
	s.token = tokens.AccessToken
	s.logger.Debug("session: login successful")
	return s.token, nil
}

func (s *SessionManager) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Invalidate drops the cached token so the next EnsureSession re-logs in.
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
