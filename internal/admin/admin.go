// Package admin provides credential checks and session tokens for the
// dashboard API.
//
// Passwords are stored as bcrypt hashes. The historical system compared
// plaintext; that is a known weakness and is deliberately not reproduced.
package admin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("admin user already exists")
	ErrUserNotFound       = errors.New("admin user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// TokenTTL is how long an issued session token remains valid.
const TokenTTL = 24 * time.Hour

// User is one dashboard administrator.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists admin users.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// Manager handles login and session tokens. Tokens are held in memory;
// a restart logs every admin out, which is acceptable for this dashboard.
type Manager struct {
	store  Store
	mu     sync.Mutex
	tokens map[string]session
	now    func() time.Time
}

type session struct {
	username  string
	expiresAt time.Time
}

// NewManager creates an admin manager backed by the given user store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:  store,
		tokens: make(map[string]session),
		now:    time.Now,
	}
}

// Login checks credentials and issues a session token on success.
// Failed credentials return ErrInvalidCredentials regardless of whether the
// username exists.
func (m *Manager) Login(ctx context.Context, username, password string) (string, error) {
	user, err := m.store.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	token := "admt_" + uuid.NewString()
	m.mu.Lock()
	m.prune()
	m.tokens[token] = session{username: user.Username, expiresAt: m.now().Add(TokenTTL)}
	m.mu.Unlock()

	return token, nil
}

// Validate returns the username behind a session token, or ErrInvalidToken.
func (m *Manager) Validate(token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.tokens[token]
	if !ok || m.now().After(s.expiresAt) {
		delete(m.tokens, token)
		return "", ErrInvalidToken
	}
	return s.username, nil
}

// prune drops expired tokens; caller holds the lock.
func (m *Manager) prune() {
	now := m.now()
	for t, s := range m.tokens {
		if now.After(s.expiresAt) {
			delete(m.tokens, t)
		}
	}
}

// HashPassword bcrypt-hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
