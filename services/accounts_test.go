package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cppla/studytutor/models"
)

func TestAccounts_RegisterAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccounts(db)
	ctx := context.Background()

	u, err := accounts.Register(ctx, " Ada@Example.com ", "secret1", "Ada")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ada@example.com" || u.PasswordHash == "" {
		t.Fatalf("user: %+v", u)
	}
	var count int64
	db.Model(&models.ProgressRecord{}).Where("user_id = ?", u.ID).Count(&count)
	if count != 1 {
		t.Fatalf("progress rows: want=1 got=%d", count)
	}

	if _, err := accounts.Register(ctx, "ada@example.com", "another1", ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate: want ErrConflict got %v", err)
	}
	got, err := accounts.Authenticate(ctx, "ADA@example.com", "secret1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("authenticate: id=%v err=%v", got, err)
	}
	if _, err := accounts.Authenticate(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("wrong password: want ErrNotAuthenticated got %v", err)
	}
	if _, err := accounts.Authenticate(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("unknown email: want ErrNotAuthenticated got %v", err)
	}
}

func TestAccounts_RegisterValidation(t *testing.T) {
	accounts := NewAccounts(newTestDB(t))
	ctx := context.Background()
	cases := []struct{ email, password string }{
		{"not-an-email", "secret1"},
		{"a@example.com", "short"},
	}
	for _, c := range cases {
		if _, err := accounts.Register(ctx, c.email, c.password, ""); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%s/%s: want ErrInvalidArgument got %v", c.email, c.password, err)
		}
	}
}

func TestAccounts_FindOrCreateExternal(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccounts(db)
	ctx := context.Background()

	local, err := accounts.Register(ctx, "grace@example.com", "secret1", "Grace")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	linked, err := accounts.FindOrCreateExternal(ctx, ExternalIdentity{Provider: "github", ProviderID: "42", Email: "grace@example.com"})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked.ID != local.ID {
		t.Fatalf("link: want id=%d got %d", local.ID, linked.ID)
	}
	again, err := accounts.FindOrCreateExternal(ctx, ExternalIdentity{Provider: "github", ProviderID: "42"})
	if err != nil || again.ID != local.ID {
		t.Fatalf("lookup by provider id: %v %v", again, err)
	}

	// a second provider with the same email signs in without taking over the link
	other, err := accounts.FindOrCreateExternal(ctx, ExternalIdentity{Provider: "google", ProviderID: "g-42", Email: "grace@example.com"})
	if err != nil || other.ID != local.ID {
		t.Fatalf("second provider by email: %v %v", other, err)
	}
	var stored models.User
	if err := db.First(&stored, local.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Provider != "github" || stored.ProviderID != "42" {
		t.Fatalf("provider link overwritten: %s/%s", stored.Provider, stored.ProviderID)
	}
	if again, err := accounts.FindOrCreateExternal(ctx, ExternalIdentity{Provider: "github", ProviderID: "42"}); err != nil || again.ID != local.ID {
		t.Fatalf("github link lost: %v %v", again, err)
	}

	fresh, err := accounts.FindOrCreateExternal(ctx, ExternalIdentity{Provider: "google", ProviderID: "g-1", Name: "No Mail"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if fresh.ID == local.ID || fresh.Email != "google-g-1@users.noreply.local" {
		t.Fatalf("fresh user: %+v", fresh)
	}
}
