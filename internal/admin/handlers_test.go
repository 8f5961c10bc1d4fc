package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupLoginRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store := NewMemoryStore()
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), &User{
		Username:     "admin",
		PasswordHash: hash,
		Role:         "admin",
	}))

	r := gin.New()
	NewHandler(NewManager(store)).RegisterRoutes(r.Group("/api"))
	return r
}

func postLogin(t *testing.T, r *gin.Engine, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestLoginEndpointSuccess(t *testing.T) {
	r := setupLoginRouter(t)

	w, resp := postLogin(t, r, gin.H{"username": "admin", "password": "admin123"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Login successful", resp["message"])
	token, _ := resp["token"].(string)
	assert.True(t, len(token) > 5 && token[:5] == "admt_", "token: %q", token)
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	r := setupLoginRouter(t)

	// Business outcome, not a transport failure: 200 with success=false
	w, resp := postLogin(t, r, gin.H{"username": "admin", "password": "wrong"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.NotContains(t, resp, "token")
}

func TestLoginEndpointMissingFields(t *testing.T) {
	r := setupLoginRouter(t)

	w, resp := postLogin(t, r, gin.H{"username": "admin"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", resp["error"])
}
