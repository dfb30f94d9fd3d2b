package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/storage/sqlite"
)

func TestJWTManager(t *testing.T) {
	manager := NewJWTManager("test-secret-key-of-reasonable-size", time.Hour)
	user := &models.User{ID: "user-1", Email: "op@example.com", Role: models.RoleOperator}

	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "op@example.com" || claims.Role != models.RoleOperator {
		t.Errorf("unexpected claims: %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("another-secret", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		tok, err := manager.Generate(&models.User{ID: "user-2", Role: "admin"})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := manager.Validate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager("test-secret-key-of-reasonable-size", -time.Minute)
		tok, err := expired.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := manager.Validate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestPasswordAuthenticator(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	authn := NewPasswordAuthenticator(store, "Ops@Example.com")
	ctx := context.Background()

	diner, err := authn.Register(ctx, "diner@example.com", "Dee", "correct horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if diner.Role != models.RoleDiner {
		t.Errorf("diner role = %s", diner.Role)
	}

	op, err := authn.Register(ctx, "ops@example.com", "Oz", "battery staple")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if op.Role != models.RoleOperator {
		t.Errorf("operator role = %s", op.Role)
	}

	if _, err := authn.Register(ctx, "DINER@example.com", "Dee again", "correct horse"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
	if _, err := authn.Register(ctx, "short@example.com", "Shorty", "abc"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}

	got, err := authn.Authenticate(ctx, "diner@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != diner.ID {
		t.Errorf("Authenticate returned %s, want %s", got.ID, diner.ID)
	}

	if _, err := authn.Authenticate(ctx, "diner@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := authn.Authenticate(ctx, "nobody@example.com", "whatever1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
