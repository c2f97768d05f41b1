package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/pkg/jwt"
)

type authServiceStub struct {
	registerFn func(context.Context, *entities.CreateUserInput) (*entities.User, error)
	loginFn    func(context.Context, *entities.LoginInput) (*entities.AuthResponse, error)
	refreshFn  func(context.Context, string) (*jwt.TokenPair, error)
	getUserFn  func(context.Context, uuid.UUID) (*entities.User, error)
	deleteFn   func(context.Context, uuid.UUID) error
}

func (s *authServiceStub) Register(ctx context.Context, input *entities.CreateUserInput) (*entities.User, error) {
	return s.registerFn(ctx, input)
}
func (s *authServiceStub) Login(ctx context.Context, input *entities.LoginInput) (*entities.AuthResponse, error) {
	return s.loginFn(ctx, input)
}
func (s *authServiceStub) RefreshToken(ctx context.Context, token string) (*jwt.TokenPair, error) {
	return s.refreshFn(ctx, token)
}
func (s *authServiceStub) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return s.getUserFn(ctx, id)
}
func (s *authServiceStub) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func TestAuthHandler_Register(t *testing.T) {
	stub := &authServiceStub{
		registerFn: func(_ context.Context, input *entities.CreateUserInput) (*entities.User, error) {
			if input.Email == "taken@example.com" {
				return nil, domainerrors.ErrAlreadyExists
			}
			return &entities.User{ID: uuid.New(), Email: input.Email, Name: input.Name, PasswordHash: "secret-hash"}, nil
		},
	}
	r := newRouter()
	r.POST("/register", NewAuthHandler(stub).Register)

	w := doJSON(t, r, http.MethodPost, "/register", `{"email":"new@example.com","name":"New","password":"abcdefg1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "new@example.com")
	assert.NotContains(t, w.Body.String(), "secret-hash")

	w = doJSON(t, r, http.MethodPost, "/register", `{"email":"taken@example.com","name":"Old","password":"abcdefg1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/register", `{"email":"not-an-email","name":"X","password":"abcdefg1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_LoginAndRefresh(t *testing.T) {
	stub := &authServiceStub{
		loginFn: func(_ context.Context, input *entities.LoginInput) (*entities.AuthResponse, error) {
			if input.Password != "right" {
				return nil, domainerrors.ErrInvalidCredentials
			}
			return &entities.AuthResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}, nil
		},
		refreshFn: func(_ context.Context, token string) (*jwt.TokenPair, error) {
			if token != "refresh" {
				return nil, domainerrors.ErrUnauthorized
			}
			return &jwt.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
		},
	}
	h := NewAuthHandler(stub)
	r := newRouter()
	r.POST("/login", h.Login)
	r.POST("/refresh", h.RefreshToken)

	w := doJSON(t, r, http.MethodPost, "/login", `{"email":"a@example.com","password":"right"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accessToken":"access"`)

	w = doJSON(t, r, http.MethodPost, "/login", `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), domainerrors.CodeInvalidCredentials)

	w = doJSON(t, r, http.MethodPost, "/refresh", `{"refreshToken":"refresh"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access-2")

	w = doJSON(t, r, http.MethodPost, "/refresh", `{"refreshToken":"stale"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_MeEndpoints(t *testing.T) {
	userID := uuid.New()
	var deleted uuid.UUID
	stub := &authServiceStub{
		getUserFn: func(_ context.Context, id uuid.UUID) (*entities.User, error) {
			if id != userID {
				return nil, domainerrors.ErrNotFound
			}
			return &entities.User{ID: id, Email: "me@example.com"}, nil
		},
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			deleted = id
			return nil
		},
	}
	h := NewAuthHandler(stub)
	r := newRouter()
	r.GET("/me", asUser(userID), h.GetMe)
	r.DELETE("/me", asUser(userID), h.DeleteMe)
	r.GET("/ghost", asUser(uuid.New()), h.GetMe)
	r.GET("/anonymous", h.GetMe)

	w := doJSON(t, r, http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "me@example.com")

	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/ghost", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodGet, "/anonymous", "").Code)

	w = doJSON(t, r, http.MethodDelete, "/me", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, userID, deleted)
}
