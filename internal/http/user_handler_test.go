package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sfa-backend/internal/domain"
	"sfa-backend/internal/service"
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

func newUserTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, service.NewMemoryRefreshTokenStore())
	userSvc := service.NewUserService(logger, newMockUserRepo())
	userH := NewUserHandler(logger, userSvc, jwtSvc)
	attendanceSvc := service.NewAttendanceService(logger, newMockSessionRepo())
	attendanceH := NewAttendanceHandler(logger, attendanceSvc, nil)

	return NewRouter(logger, jwtSvc, userH, attendanceH)
}

func TestUserEndpoints_RegisterAndLogin(t *testing.T) {
	router := newUserTestRouter(t)
	env := &testEnv{router: router}

	rec := env.do(t, http.MethodPost, "/users", "", gin.H{
		"email":     "rep@example.com",
		"full_name": "Test Rep",
		"password":  "secret-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "rep@example.com",
		"password": "secret-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "rep@example.com",
		"password": "wrong-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}
}

func TestUserEndpoints_DuplicateEmail(t *testing.T) {
	router := newUserTestRouter(t)
	env := &testEnv{router: router}

	body := gin.H{"email": "rep@example.com", "password": "secret-pass"}
	if rec := env.do(t, http.MethodPost, "/users", "", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/users", "", body); rec.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d", rec.Code)
	}
}
