package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"billbook/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", mw, func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c)+"|"+GetUserRole(c))
	})
	return r
}

func do(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTManager_IssueAndParse(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, expiresAt, err := m.Issue("user-1", model.RoleAccountant)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, model.RoleAccountant, claims.Role)

	_, err = NewJWTManager("other", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsUnknownRole(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, _, err := m.Issue("user-1", "superuser")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestRequirePermission(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	staff, _, _ := m.Issue("u-staff", model.RoleStaff)
	accountant, _, _ := m.Issue("u-acct", model.RoleAccountant)

	r := newRouter(m.RequirePermission(model.PermKhataWrite))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"forbidden", "Bearer " + staff, http.StatusForbidden},
		{"allowed", "Bearer " + accountant, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := do(r, "Bearer "+accountant)
	assert.Equal(t, "u-acct|accountant", w.Body.String())
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	m := &JWTManager{secret: []byte("secret"), ttl: -time.Minute}
	token, _, err := m.Issue("user-1", model.RoleStaff)
	require.NoError(t, err)

	w := do(newRouter(m.RequireAuth()), "Bearer "+token)
	assert.Equal(t, StatusTokenExpired, w.Code)
}

func TestRequireRole(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	admin, _, _ := m.Issue("u-admin", model.RoleAdmin)
	staff, _, _ := m.Issue("u-staff", model.RoleStaff)

	r := newRouter(m.RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusOK, do(r, "Bearer "+admin).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+staff).Code)
}

func TestRequireAuth_Cookie(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, _, _ := m.Issue("user-1", model.RoleStaff)
	r := newRouter(m.RequireAuth())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
