package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/epcr-service/internal/domain"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

type stubUsers map[string]*domain.User

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "epcr-service", 5)
	user := &domain.User{ID: "u-1", Role: domain.RoleEMT}

	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleEMT, claims.Role)
	assert.Equal(t, "epcr-service", claims.Issuer)
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", "", 5).GenerateToken(&domain.User{ID: "u-1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = NewTokenManager("two", "", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestSignInCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)

	hashed, err := HashCode(code, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, CompareCode(hashed, code))
	assert.Error(t, CompareCode(hashed, "not-it"))
}

func newProtectedApp(tm *TokenManager, users stubUsers, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	handlers := append([]fiber.Handler{NewAuthMiddleware(tm, users).Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		p, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		return c.SendString(p.Actor().ID)
	})
	app.Get("/who", handlers...)
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", "", 5)
	users := stubUsers{
		"emt-1":   {ID: "emt-1", Role: domain.RoleEMT},
		"admin-1": {ID: "admin-1", Role: domain.RoleAdmin},
	}
	emtToken, _, err := tm.GenerateToken(users["emt-1"])
	require.NoError(t, err)
	adminToken, _, err := tm.GenerateToken(users["admin-1"])
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateToken(&domain.User{ID: "ghost", Role: domain.RoleAdmin})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		guards []fiber.Handler
		status int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized},
		{"garbage token", "Bearer abc", nil, http.StatusUnauthorized},
		{"unknown user", "Bearer " + ghostToken, nil, http.StatusUnauthorized},
		{"valid", "Bearer " + emtToken, []fiber.Handler{RequireAuthenticated()}, http.StatusOK},
		{"emt on admin route", "Bearer " + emtToken, []fiber.Handler{RequireAdmin()}, http.StatusForbidden},
		{"admin on admin route", "Bearer " + adminToken, []fiber.Handler{RequireAdmin()}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newProtectedApp(tm, users, tc.guards...)
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
