package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
)

type createdAccount struct {
	email string
	role  string
	cost  int
}

type stubUserStore struct {
	created []createdAccount
	err     error
}

func (s *stubUserStore) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.created = append(s.created, createdAccount{email: email, role: role, cost: cost})
	return uint64(len(s.created)), nil
}

func (s *stubUserStore) GetByEmail(context.Context, string) (model.User, error) {
	return model.User{}, repository.ErrNotFound
}

func doRegister(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/users", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.Register(c))
	return rec
}

func TestRegisterCreatesStaffAccount(t *testing.T) {
	store := &stubUserStore{}
	h := NewAuthHandler(store, "secret", 60, 12)

	rec := doRegister(t, h, `{"email":"door@example.com","password":"letmein-door"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, model.RoleStaff, body["role"], "role defaults to STAFF")

	require.Len(t, store.created, 1)
	assert.Equal(t, "door@example.com", store.created[0].email)
	assert.Equal(t, model.RoleStaff, store.created[0].role)
	assert.Equal(t, 12, store.created[0].cost, "the configured bcrypt cost is passed through")
}

func TestRegisterAdminRole(t *testing.T) {
	store := &stubUserStore{}
	h := NewAuthHandler(store, "secret", 60, 12)

	rec := doRegister(t, h, `{"email":"boss@example.com","password":"letmein-boss","role":"admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, model.RoleAdmin, store.created[0].role, "role is normalized to upper case")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := &stubUserStore{err: repository.ErrEmailExists}
	h := NewAuthHandler(store, "secret", 60, 12)

	rec := doRegister(t, h, `{"email":"door@example.com","password":"letmein-door"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"not-an-email","password":"letmein-door"}`},
		{"short password", `{"email":"door@example.com","password":"short"}`},
		{"unknown role", `{"email":"door@example.com","password":"letmein-door","role":"OWNER"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubUserStore{}
			h := NewAuthHandler(store, "secret", 60, 12)
			rec := doRegister(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, store.created, "nothing is written on a rejected request")
		})
	}
}
