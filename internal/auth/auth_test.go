package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"taskchat/internal/db"
	"taskchat/internal/envelope"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key-at-least-32-characters!!"

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewService(database, NewJWTService(testSecret, 24), zap.NewNop())
}

func TestTokenRoundTrip(t *testing.T) {
	jwtService := NewJWTService(testSecret, 24)

	token, expiresAt, err := jwtService.GenerateToken(42, "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, _, err := NewJWTService(testSecret, 24).GenerateToken(42, "alice@example.com")
	require.NoError(t, err)

	other := NewJWTService("another-secret-also-32-characters-long!!", 24)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	expired := NewJWTService(testSecret, -1)
	token, _, err := expired.GenerateToken(42, "alice@example.com")
	require.NoError(t, err)

	_, err = NewJWTService(testSecret, 24).ValidateToken(token)
	assert.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	jwtService := NewJWTService(testSecret, 24)
	token, _, err := jwtService.GenerateToken(42, "alice@example.com")
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)
	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}

func TestRegisterAndLogin(t *testing.T) {
	service := newTestService(t)

	res := service.Register("Alice@Example.com", "password123")
	require.True(t, res.Success)
	creds := res.Data.(*Credentials)
	assert.NotEmpty(t, creds.Token)
	assert.Equal(t, "alice@example.com", creds.User.Email)

	res = service.Login("alice@example.com", "password123")
	require.True(t, res.Success)
	assert.NotEmpty(t, res.Data.(*Credentials).Token)
}

func TestRegisterValidation(t *testing.T) {
	service := newTestService(t)

	res := service.Register("not-an-email", "password123")
	require.False(t, res.Success)
	assert.Equal(t, envelope.CodeValidation, res.Error.Code)

	res = service.Register("alice@example.com", "short")
	require.False(t, res.Success)
	assert.Equal(t, envelope.CodeValidation, res.Error.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service := newTestService(t)

	require.True(t, service.Register("alice@example.com", "password123").Success)

	res := service.Register("alice@example.com", "password456")
	require.False(t, res.Success)
	assert.Equal(t, envelope.CodeDuplicateEmail, res.Error.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	service := newTestService(t)
	require.True(t, service.Register("alice@example.com", "password123").Success)

	// Unknown email and wrong password produce the identical response.
	unknown := service.Login("bob@example.com", "password123")
	wrong := service.Login("alice@example.com", "badpassword")

	for _, res := range []envelope.Result{unknown, wrong} {
		require.False(t, res.Success)
		assert.Equal(t, envelope.CodeInvalidCredentials, res.Error.Code)
		assert.Equal(t, "invalid email or password", res.Error.Message)
	}
}

func TestRequireAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtService := NewJWTService(testSecret, 24)

	router := gin.New()
	router.GET("/protected", RequireAuth(jwtService, zap.NewNop()), func(c *gin.Context) {
		id, ok := UserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic abc123")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, _, err := jwtService.GenerateToken(42, "alice@example.com")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":42`)
	})
}
