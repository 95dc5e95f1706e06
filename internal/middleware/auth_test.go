package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authd/internal/models"
	"authd/internal/repository"
	"authd/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepo struct {
	users map[uuid.UUID]*models.User
	err   error
}

func (r *stubRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (r *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func (r *stubRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return false, nil
}

func (r *stubRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func setupGate(t *testing.T, repo repository.UserRepository) (*gin.Engine, *token.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := token.NewManager([]byte("gate-secret"), time.Hour)
	router := gin.New()

	router.GET("/protected", RequireAuth(tokens, repo, zap.NewNop()), func(c *gin.Context) {
		user := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	router.GET("/open", OptionalAuth(tokens, repo, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": c.GetBool(AuthenticatedKey)})
	})

	return router, tokens
}

func knownUser() (*stubRepo, *models.User) {
	user := &models.User{ID: uuid.New(), Username: "alice"}
	repo := &stubRepo{users: map[uuid.UUID]*models.User{user.ID: user}}
	return repo, user
}

func TestRequireAuth_MissingToken(t *testing.T) {
	repo, _ := knownUser()
	router, _ := setupGate(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"You are not logged in, please provide token"}`, w.Body.String())
}

func TestRequireAuth_CookieTransport(t *testing.T) {
	repo, user := knownUser()
	router, tokens := setupGate(t, repo)

	tok, err := tokens.Issue(user.ID, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestRequireAuth_BearerTransport(t *testing.T) {
	repo, user := knownUser()
	router, tokens := setupGate(t, repo)

	tok, err := tokens.Issue(user.ID, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_CookiePreferredOverHeader(t *testing.T) {
	repo, user := knownUser()
	router, tokens := setupGate(t, repo)

	tok, err := tokens.Issue(user.ID, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	repo, user := knownUser()
	router, tokens := setupGate(t, repo)

	tok, err := tokens.Issue(user.ID, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid token"}`, w.Body.String())
}

func TestRequireAuth_ForgedToken(t *testing.T) {
	repo, user := knownUser()
	router, _ := setupGate(t, repo)

	forger := token.NewManager([]byte("other-secret"), time.Hour)
	tok, err := forger.Issue(user.ID, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_DeletedUserLooksLikeForgedToken(t *testing.T) {
	repo, _ := knownUser()
	router, tokens := setupGate(t, repo)

	// Valid token for an id the repository no longer knows.
	tok, err := tokens.Issue(uuid.New(), time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid token"}`, w.Body.String())
}

func TestRequireAuth_RepositoryErrorIs500(t *testing.T) {
	repo, user := knownUser()
	repo.err = context.DeadlineExceeded
	router, tokens := setupGate(t, repo)

	tok, err := tokens.Issue(user.ID, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	repo, _ := knownUser()
	router, _ := setupGate(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestOptionalAuth_InvalidTokenPassesThrough(t *testing.T) {
	repo, _ := knownUser()
	router, _ := setupGate(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestOptionalAuth_Authenticated(t *testing.T) {
	repo, user := knownUser()
	router, tokens := setupGate(t, repo)

	tok, err := tokens.Issue(user.ID, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
}
