package auth

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/joestump/hookline/internal/apperr"
)

// Identity is a signed-in user.
type Identity struct {
	Username string
	Email    string
	Method   string // "password" or "oidc"
}

// Provider checks a username and password. Implementations return a KindAuth
// error for bad credentials without saying which part was wrong.
type Provider interface {
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
}

// StaticProvider authenticates against a fixed username to bcrypt hash table
// loaded once at startup.
type StaticProvider struct {
	users map[string][]byte
}

func NewStaticProvider(users map[string]string) *StaticProvider {
	m := make(map[string][]byte, len(users))
	for name, hash := range users {
		m[strings.TrimSpace(name)] = []byte(strings.TrimSpace(hash))
	}
	return &StaticProvider{users: m}
}

// Usernames lists the configured users in sorted order.
func (p *StaticProvider) Usernames() []string {
	out := make([]string, 0, len(p.users))
	for name := range p.users {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var errBadCredentials = apperr.Auth("login", "invalid username or password", nil)

func (p *StaticProvider) Authenticate(_ context.Context, username, password string) (*Identity, error) {
	username = strings.TrimSpace(username)
	hash, ok := p.users[username]
	if !ok || username == "" {
		// Same cost as a real check so unknown users are not distinguishable by timing.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return &Identity{Username: username, Method: "password"}, nil
}

// HashPassword returns the bcrypt hash stored in auth.users.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", apperr.Input("hash password", "password is empty", nil)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("hookline-dummy-password"), bcrypt.DefaultCost)
	})
	return dummy
}
