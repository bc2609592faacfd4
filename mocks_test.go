package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	auth "github.com/trailpack/go-auth"
)

// nopLogger keeps test output quiet.
type nopLogger struct{}

func (nopLogger) Debug(format string, args ...any) {}
func (nopLogger) Info(format string, args ...any)  {}
func (nopLogger) Warn(format string, args ...any)  {}
func (nopLogger) Error(format string, args ...any) {}

func testConfig() auth.Options {
	return auth.Options{
		SigningKey:      "test-signing-key",
		TokenExpiration: 2,
		BcryptCost:      4, // keep hashing cheap in tests
		Environment:     auth.EnvProduction,
	}
}

// recordingNotifier captures every dispatched notification.
type recordingNotifier struct {
	mu   sync.Mutex
	urls []string
	fail bool
}

func (n *recordingNotifier) Send(ctx context.Context, user *auth.User, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	if n.fail {
		return errors.New("smtp unreachable")
	}
	return nil
}

func (n *recordingNotifier) lastURL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}

// memStore is an in-memory Users implementation for guard tests.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*auth.User
}

var _ auth.Users = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{users: map[uuid.UUID]*auth.User{}}
}

func (s *memStore) Create(ctx context.Context, record *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Role == "" {
		record.Role = auth.RoleUser
	}
	record.Active = true

	for _, u := range s.users {
		if u.Email == record.Email {
			return nil, errors.New("UNIQUE constraint failed: users.email")
		}
	}

	cp := *record
	s.users[record.ID] = &cp
	return record, nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	u, err := s.get(id, true)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *memStore) GetByIDWithPassword(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.get(id, true)
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, err := s.byEmail(email)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *memStore) GetByEmailWithPassword(ctx context.Context, email string) (*auth.User, error) {
	return s.byEmail(email)
}

func (s *memStore) GetByResetTokenHash(ctx context.Context, digest string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Active && u.ResetTokenHash == digest &&
			u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(time.Now()) {
			cp := *u
			cp.PasswordHash = ""
			return &cp, nil
		}
	}
	return nil, auth.ErrIdentityNotFound
}

func (s *memStore) SetResetToken(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !u.Active {
		return auth.ErrIdentityNotFound
	}
	u.ResetTokenHash = digest
	u.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (s *memStore) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrIdentityNotFound
	}
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	return nil
}

func (s *memStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !u.Active {
		return auth.ErrIdentityNotFound
	}
	changedAt := time.Now().Add(-time.Second)
	u.PasswordHash = passwordHash
	u.PasswordChangedAt = &changedAt
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	return nil
}

func (s *memStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrIdentityNotFound
	}
	u.Active = false
	return nil
}

// markPasswordChanged backdates or postdates the stored credential change.
func (s *memStore) markPasswordChanged(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.PasswordChangedAt = &at
	}
}

func (s *memStore) get(id uuid.UUID, activeOnly bool) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || (activeOnly && !u.Active) {
		return nil, auth.ErrIdentityNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) byEmail(email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Active && u.Email == auth.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrIdentityNotFound
}
