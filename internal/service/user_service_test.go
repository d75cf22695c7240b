package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sfa-backend/internal/domain"
)

type mockUserRepo struct {
	usersByID    map[int64]domain.User
	usersByEmail map[string]int64
	nextID       int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[int64]domain.User),
		usersByEmail: make(map[string]int64),
		nextID:       1,
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (int64, error) {
	user.ID = m.nextID
	m.nextID++
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	return user.ID, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func TestUserServiceCreateUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    " Rep@Example.com ",
		FullName: "Test Rep",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if user.Email != "rep@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != domain.RoleRep {
		t.Fatalf("expected default rep role, got %q", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret-pass" {
		t.Fatalf("expected hashed password")
	}

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := svc.CreateUser(context.Background(), CreateUserInput{
			Email:    "rep@example.com",
			Password: "other-pass-123",
		})
		if err != ErrEmailTaken {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := svc.CreateUser(context.Background(), CreateUserInput{
			Email:    "other@example.com",
			Password: "short",
		})
		if err != ErrInvalidPassword {
			t.Fatalf("expected ErrInvalidPassword, got %v", err)
		}
	})
}

func TestUserServiceAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	if _, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "rep@example.com",
		Password: "secret-pass",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Authenticate(context.Background(), "rep@example.com", "secret-pass")
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if user.Email != "rep@example.com" {
			t.Fatalf("unexpected user %+v", user)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Authenticate(context.Background(), "rep@example.com", "wrong-pass"); err != ErrInvalidCredentials {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := svc.Authenticate(context.Background(), "ghost@example.com", "secret-pass"); err != ErrInvalidCredentials {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
