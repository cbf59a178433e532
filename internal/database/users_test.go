package database

import (
	"context"
	"errors"
	"testing"

	"finance-ledger-go/internal/store"
)

func TestCreateUser(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user, err := service.CreateUser(ctx, "user1", "Test User", "test@example.com")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Id != "user1" || user.Email != "test@example.com" {
		t.Errorf("Unexpected user %+v", user)
	}

	_, err = service.CreateUser(ctx, "user2", "Other", "test@example.com")
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}

	byId, err := service.GetUserById(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if byId.Name != "Test User" {
		t.Errorf("Expected name Test User, got %s", byId.Name)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.GetUserById(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by id, got %v", err)
	}
	if _, err := service.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by email, got %v", err)
	}
}

func TestCreateUser_EmailIsCaseInsensitive(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user, err := service.CreateUser(ctx, "user1", "  Mixed Case ", " Mixed.Case@Example.com ")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Email != "mixed.case@example.com" || user.Name != "Mixed Case" {
		t.Errorf("Expected normalised user, got %+v", user)
	}

	if _, err := service.CreateUser(ctx, "user2", "Other", "MIXED.CASE@example.com"); !errors.Is(err, store.ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken for differently cased email, got %v", err)
	}

	byEmail, err := service.GetUserByEmail(ctx, "Mixed.Case@EXAMPLE.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.Id != "user1" {
		t.Errorf("Expected user1, got %s", byEmail.Id)
	}
}

func TestCreateUser_DuplicateIdIsNotEmailConflict(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.CreateUser(ctx, "user1", "First", "first@example.com"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	_, err := service.CreateUser(ctx, "user1", "Second", "second@example.com")
	if err == nil || errors.Is(err, store.ErrEmailTaken) {
		t.Errorf("Expected a plain insert error for a reused id, got %v", err)
	}
}

func TestGetUsers_CountsAccounts(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, service, "0")
	if _, err := service.CreateUser(ctx, "idle", "Idle User", "idle@example.com"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	users, err := service.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers failed: %v", err)
	}
	counts := map[string]int{}
	for _, u := range users {
		counts[u.Id] = u.AccountCount
	}
	if counts[account.UserId] != 1 || counts["idle"] != 0 || len(counts) != 2 {
		t.Errorf("Unexpected account counts %v", counts)
	}

	owner, err := service.GetUserById(ctx, account.UserId)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if owner.AccountCount != 1 {
		t.Errorf("Expected owner to have 1 account, got %d", owner.AccountCount)
	}
}
