package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tixgate/tixgate/internal/middleware"
	"github.com/tixgate/tixgate/internal/models"
)

func TestRegisterThenLogin(t *testing.T) {
	app := newTestApp(t)
	h := NewAuthHandler(app.users, "test-secret", zaptest.NewLogger(t))
	app.router.POST("/v1/auth/register", h.Register)
	app.router.POST("/v1/auth/login", h.Login)

	w := doJSON(t, app.router, http.MethodPost, "/v1/auth/register", gin.H{
		"username":  "concertfan",
		"full_name": "Concert Fan",
		"email":     "fan@example.com",
		"password":  "supersecret",
		"phone":     "0811111111",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Duplicate registration is a conflict.
	w = doJSON(t, app.router, http.MethodPost, "/v1/auth/register", gin.H{
		"username":  "concertfan2",
		"full_name": "Concert Fan",
		"email":     "fan@example.com",
		"password":  "supersecret",
		"phone":     "0811111111",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, app.router, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "fan@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleAttendee, resp.User.Role)

	// The issued token passes the auth middleware.
	r := gin.New()
	r.GET("/whoami", middleware.JWTAuthMiddleware("test-secret"), func(c *gin.Context) {
		id, _ := middleware.UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.String(), "role": c.GetString(middleware.ContextRole)})
	})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var who map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &who))
	assert.Equal(t, resp.User.ID, who["user_id"])
	assert.Equal(t, models.RoleAttendee, who["role"])
}

func TestLogin_WrongPassword(t *testing.T) {
	app := newTestApp(t)
	h := NewAuthHandler(app.users, "test-secret", zaptest.NewLogger(t))
	app.router.POST("/v1/auth/register", h.Register)
	app.router.POST("/v1/auth/login", h.Login)

	w := doJSON(t, app.router, http.MethodPost, "/v1/auth/register", gin.H{
		"username":  "someone",
		"full_name": "Some One",
		"email":     "someone@example.com",
		"password":  "rightpassword",
		"phone":     "0811111111",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, app.router, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "someone@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, app.router, http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "nobody@example.com",
		"password": "rightpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_ValidationRules(t *testing.T) {
	app := newTestApp(t)
	h := NewAuthHandler(app.users, "test-secret", zaptest.NewLogger(t))
	app.router.POST("/v1/auth/register", h.Register)

	// Password below the minimum length.
	w := doJSON(t, app.router, http.MethodPost, "/v1/auth/register", gin.H{
		"username":  "shorty",
		"full_name": "Short Pass",
		"email":     "short@example.com",
		"password":  "abc",
		"phone":     "0811111111",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err := app.users.ByEmail(context.Background(), "short@example.com")
	assert.Error(t, err, "rejected registration must not persist the user")
}
