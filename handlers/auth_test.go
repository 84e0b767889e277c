package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/cache"
	"portfolio-tracker/database"
	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
)

var testSecret = []byte("handlers-test-secret")

type memUsers struct {
	mu     sync.Mutex
	byMail map[string]*models.User
	nextID uint
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byMail[strings.ToLower(email)]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	cp := *user
	s.byMail[user.Email] = &cp
	return nil
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func newAuthServer() (*testServer, *cache.MemoryStore) {
	tokens := cache.NewMemoryStore()
	h := NewAuthHandler(&memUsers{byMail: map[string]*models.User{}}, tokens, testSecret, time.Hour, 24*time.Hour, nil)

	router := gin.New()
	Routes{Auth: h}.Register(router, middleware.JWTAuth(testSecret))
	router.GET("/whoami", middleware.JWTAuth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": userID(c)})
	})
	return &testServer{router: router}, tokens
}

func TestSignupAndLogin(t *testing.T) {
	s, _ := newAuthServer()
	creds := map[string]string{"email": "Ana@Example.com", "password": "correct-horse"}

	require.Equal(t, http.StatusCreated, s.postJSON("/signup", creds).Code)
	assert.Equal(t, http.StatusConflict, s.postJSON("/signup", map[string]string{
		"email": "ana@example.com", "password": "another-one",
	}).Code)

	w := s.postJSON("/login", map[string]string{"email": "ana@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.postJSON("/login", map[string]string{"email": "bob@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.postJSON("/login", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair tokenPair
	decode(t, w, &pair)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 1}`, rec.Body.String())
}

func TestSignupValidation(t *testing.T) {
	s, _ := newAuthServer()
	assert.Equal(t, http.StatusBadRequest, s.postJSON("/signup", map[string]string{"email": "not-an-email", "password": "long-enough"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.postJSON("/signup", map[string]string{"email": "a@b.co", "password": "short"}).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	s, _ := newAuthServer()
	creds := map[string]string{"email": "ana@example.com", "password": "correct-horse"}
	require.Equal(t, http.StatusCreated, s.postJSON("/signup", creds).Code)

	w := s.postJSON("/login", creds)
	require.Equal(t, http.StatusOK, w.Code)
	var first tokenPair
	decode(t, w, &first)

	assert.Equal(t, http.StatusUnauthorized, s.postJSON("/refresh", map[string]string{"refresh_token": first.AccessToken}).Code)

	w = s.postJSON("/refresh", map[string]string{"refresh_token": first.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second tokenPair
	decode(t, w, &second)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	w = s.postJSON("/refresh", map[string]string{"refresh_token": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
