package auth_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/auth"
)

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(b)
}

func TestStaticProvider_Authenticate(t *testing.T) {
	p := auth.NewStaticProvider(map[string]string{
		"alice": mustHash(t, "s3cret"),
		"bob":   mustHash(t, "hunter2"),
	})

	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
	}{
		{name: "valid", username: "alice", password: "s3cret", wantOK: true},
		{name: "username trimmed", username: "  bob ", password: "hunter2", wantOK: true},
		{name: "wrong password", username: "alice", password: "nope"},
		{name: "other user's password", username: "alice", password: "hunter2"},
		{name: "unknown user", username: "mallory", password: "s3cret"},
		{name: "empty", username: "", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := p.Authenticate(context.Background(), tt.username, tt.password)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Authenticate: %v", err)
				}
				if id.Method != "password" || id.Username == "" {
					t.Errorf("identity = %+v", id)
				}
				return
			}
			if !errors.Is(err, apperr.ErrAuth) {
				t.Errorf("err = %v, want ErrAuth", err)
			}
			if id != nil {
				t.Errorf("identity = %+v, want nil", id)
			}
		})
	}
}

func TestStaticProvider_Usernames(t *testing.T) {
	p := auth.NewStaticProvider(map[string]string{"zed": "h", "amy": "h"})
	if got := p.Usernames(); !reflect.DeepEqual(got, []string{"amy", "zed"}) {
		t.Errorf("Usernames = %v", got)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
	p := auth.NewStaticProvider(map[string]string{"carol": hash})
	if _, err := p.Authenticate(context.Background(), "carol", "correct horse"); err != nil {
		t.Errorf("Authenticate with generated hash: %v", err)
	}
	if _, err := auth.HashPassword(""); apperr.KindOf(err) != apperr.KindInput {
		t.Errorf("empty password err = %v", err)
	}
}
