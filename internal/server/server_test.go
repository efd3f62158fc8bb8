package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gigfolio/internal/config"
	"gigfolio/internal/models"
	"gigfolio/internal/service"
	"gigfolio/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testCookie = "gigfolio_session"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	cfg    *config.Config
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	return setupTestServerWith(t, "test", nil)
}

func setupTestServerWith(t *testing.T, appEnv string, rdb *redis.Client) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", appEnv)

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.PortfolioItem{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		Port:              "0",
		Env:               appEnv,
		DBDriver:          config.DriverSQLite,
		SessionCookieName: testCookie,
		SessionTTLHours:   1,
		UploadDir:         filepath.Join(dir, "uploads"),
		UploadMaxSizeMB:   1,
		AllowedOrigins:    "http://localhost:3000",
	}

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &testEnv{server: s, app: s.NewApp(), db: db, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie string) *http.Response {
	t.Helper()
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, cookie)
}

func (e *testEnv) get(t *testing.T, path, cookie string) *http.Response {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (e *testEnv) upload(t *testing.T, filename string, content []byte, cookie string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/portfolio", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(t, req, cookie)
}

func (e *testEnv) register(t *testing.T, name, email, password string) *http.Response {
	t.Helper()
	return e.postForm(t, "/register", url.Values{"fullName": {name}, "email": {email}, "password": {password}}, "")
}

// login returns the session cookie value set by a successful login.
func (e *testEnv) login(t *testing.T, email, password, prior string) string {
	t.Helper()
	resp := e.postForm(t, "/login", url.Values{"email": {email}, "password": {password}}, prior)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))
	return sessionCookie(t, resp)
}

func sessionCookie(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			return c.Value
		}
	}
	t.Fatalf("response has no %s cookie", testCookie)
	return ""
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRegister(t *testing.T) {
	env := setupTestServer(t)

	resp := env.register(t, "Ada", "ada@example.com", "analytical")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = env.register(t, "Other", "ada@example.com", "different1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errBody models.ErrorResponse
	decodeJSON(t, resp, &errBody)
	assert.Equal(t, models.CodeDuplicateEmail, errBody.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	resp = env.register(t, "Shorty", "shorty@example.com", "short")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginStateTransitions(t *testing.T) {
	env := setupTestServer(t)
	require.Equal(t, http.StatusFound, env.register(t, "Grace", "grace@example.com", "cobol-rules").StatusCode)

	resp := env.postForm(t, "/login", url.Values{"email": {"grace@example.com"}, "password": {"wrong-one"}}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	for _, c := range resp.Cookies() {
		assert.NotEqual(t, testCookie, c.Name, "failed login must not issue a session")
	}

	resp = env.get(t, "/home", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	token := env.login(t, "grace@example.com", "cobol-rules", "")
	resp = env.get(t, "/home", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var home map[string]string
	decodeJSON(t, resp, &home)
	assert.Equal(t, "Grace", home["user_name"])

	t.Run("relogin invalidates prior session", func(t *testing.T) {
		fresh := env.login(t, "grace@example.com", "cobol-rules", token)
		assert.NotEqual(t, token, fresh)

		resp := env.get(t, "/home", token)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, http.StatusOK, env.get(t, "/home", fresh).StatusCode)
		token = fresh
	})

	t.Run("logout requires re-authentication", func(t *testing.T) {
		resp := env.get(t, "/logout", token)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))

		for _, path := range []string{"/home", "/profile", "/portfolio", "/test"} {
			resp := env.get(t, path, token)
			assert.Equal(t, http.StatusFound, resp.StatusCode, path)
			assert.Equal(t, "/login", resp.Header.Get("Location"), path)
		}
	})

	t.Run("logout without a session still succeeds", func(t *testing.T) {
		resp := env.get(t, "/logout", "")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})
}

func TestProfile(t *testing.T) {
	env := setupTestServer(t)
	require.Equal(t, http.StatusFound, env.register(t, "Linus", "linus@example.com", "penguins!").StatusCode)
	token := env.login(t, "linus@example.com", "penguins!", "")

	resp := env.postForm(t, "/profile", url.Values{"fullName": {"Linus T."}, "skills": {"C, git"}}, token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))

	resp = env.get(t, "/profile", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user map[string]any
	decodeJSON(t, resp, &user)
	assert.Equal(t, "Linus T.", user["name"])
	assert.Equal(t, "C, git", user["skills"])
	assert.NotContains(t, user, "password")
}

func TestPortfolio(t *testing.T) {
	env := setupTestServer(t)
	require.Equal(t, http.StatusFound, env.register(t, "Ada", "ada@example.com", "analytical").StatusCode)
	token := env.login(t, "ada@example.com", "analytical", "")

	listFiles := func() []string {
		resp := env.get(t, "/portfolio", token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Files []string `json:"files"`
		}
		decodeJSON(t, resp, &body)
		return body.Files
	}

	assert.Empty(t, listFiles())

	resp := env.upload(t, "resume.pdf", []byte("%PDF-1.4"), token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/portfolio", resp.Header.Get("Location"))
	assert.Equal(t, []string{"resume.pdf"}, listFiles())

	resp = env.upload(t, "virus.exe", []byte("MZ"), token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody models.ErrorResponse
	decodeJSON(t, resp, &errBody)
	assert.Equal(t, models.CodeDisallowedExtension, errBody.Code)
	assert.Equal(t, []string{"resume.pdf"}, listFiles())

	t.Run("missing file part redirects without a record", func(t *testing.T) {
		resp := env.postForm(t, "/portfolio", url.Values{}, token)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/portfolio", resp.Header.Get("Location"))
		assert.Equal(t, []string{"resume.pdf"}, listFiles())
	})

	t.Run("traversal names stay inside the upload dir", func(t *testing.T) {
		resp := env.upload(t, "../../etc/passwd.png", []byte("png"), token)
		require.Equal(t, http.StatusFound, resp.StatusCode)

		files := listFiles()
		require.Len(t, files, 2)
		stored := files[1]
		assert.Contains(t, []string{"passwd.png", "etc_passwd.png"}, stored)
		_, err := os.Stat(filepath.Join(env.cfg.UploadDir, stored))
		assert.NoError(t, err)
	})

	t.Run("uploads are served without a session", func(t *testing.T) {
		resp := env.get(t, "/uploads/resume.pdf", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(body))

		resp = env.get(t, "/uploads/missing.pdf", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServeUpload_AfterOverwrite(t *testing.T) {
	env := setupTestServer(t)
	require.Equal(t, http.StatusFound, env.register(t, "Ada", "ada@example.com", "analytical").StatusCode)
	require.Equal(t, http.StatusFound, env.register(t, "Bob", "bob@example.com", "builder!").StatusCode)
	ada := env.login(t, "ada@example.com", "analytical", "")
	bob := env.login(t, "bob@example.com", "builder!", "")

	fetch := func() (string, string) {
		resp := env.get(t, "/uploads/cv.pdf", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body), resp.Header.Get("Content-Type")
	}

	require.Equal(t, http.StatusFound, env.upload(t, "cv.pdf", []byte("ADA-CONTENT"), ada).StatusCode)
	body, contentType := fetch()
	assert.Equal(t, "ADA-CONTENT", body)
	assert.Equal(t, "application/pdf", contentType)

	require.Equal(t, http.StatusFound, env.upload(t, "cv.pdf", []byte("BOB-CONTENT-LONGER"), bob).StatusCode)
	body, _ = fetch()
	assert.Equal(t, "BOB-CONTENT-LONGER", body)

	require.Equal(t, http.StatusFound, env.upload(t, "cv.pdf", []byte("ADA"), ada).StatusCode)
	body, _ = fetch()
	assert.Equal(t, "ADA", body)
}

// brokenDeleteStore is a working store whose Delete always fails.
type brokenDeleteStore struct {
	session.Store
}

func (brokenDeleteStore) Delete(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func TestLogout_ClearsCookieWhenStoreFails(t *testing.T) {
	env := setupTestServer(t)
	require.Equal(t, http.StatusFound, env.register(t, "Grace", "grace@example.com", "cobol-rules").StatusCode)
	token := env.login(t, "grace@example.com", "cobol-rules", "")

	env.server.authService = service.NewAuthService(env.server.userRepo, brokenDeleteStore{env.server.sessions})

	resp := env.get(t, "/logout", token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			cleared = c
		}
	}
	require.NotNil(t, cleared, "logout must reset the session cookie")
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))
}

func TestQuiz(t *testing.T) {
	env := setupTestServer(t)
	require.Equal(t, http.StatusFound, env.register(t, "Tim", "tim@example.com", "www-inventor").StatusCode)
	token := env.login(t, "tim@example.com", "www-inventor", "")

	resp := env.get(t, "/test", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var quiz struct {
		Questions []map[string]any `json:"questions"`
	}
	decodeJSON(t, resp, &quiz)
	require.Len(t, quiz.Questions, 2)
	assert.NotContains(t, quiz.Questions[0], "answer")

	tests := []struct {
		name string
		form url.Values
		want map[string]int
	}{
		{"all correct", url.Values{"q1": {"Hyper Text Markup Language"}, "q2": {"<a>"}}, map[string]int{"score": 2, "total": 2}},
		{"no answers", url.Values{}, map[string]int{"score": 0, "total": 2}},
		{"one wrong", url.Values{"q1": {"Hyper Text Markup Language"}, "q2": {"<href>"}}, map[string]int{"score": 1, "total": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postForm(t, "/test", tt.form, token)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var got map[string]int
			decodeJSON(t, resp, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHealthChecks(t *testing.T) {
	env := setupTestServer(t)

	resp := env.get(t, "/health/live", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/health/ready", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decodeJSON(t, resp, &body)
	assert.Equal(t, "degraded", body["status"])

	require.NoError(t, os.RemoveAll(env.cfg.UploadDir))
	resp = env.get(t, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var failed struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, resp, &failed)
	assert.Equal(t, "unhealthy", failed.Status)
	assert.Equal(t, "unhealthy", failed.Checks["uploads"])
}

func TestPublicPages(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/", "/login", "/register"} {
		resp := env.get(t, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp := env.get(t, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewDuplicateEmailError("a@b.c"), http.StatusConflict},
		{models.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{models.NewSessionRequiredError(), http.StatusUnauthorized},
		{models.NewNoFileError(), http.StatusBadRequest},
		{models.NewDisallowedExtensionError("x.exe"), http.StatusBadRequest},
		{models.NewValidationError("bad"), http.StatusBadRequest},
		{models.NewNotFoundError("File", "x"), http.StatusNotFound},
		{models.NewInternalError(io.EOF), http.StatusInternalServerError},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapServiceError(tt.err), tt.err.Error())
	}
}

func TestLoginRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	env := setupTestServerWith(t, "staging", rdb)
	require.Equal(t, http.StatusFound, env.register(t, "Grace", "grace@example.com", "cobol-rules").StatusCode)

	attempt := func(email string) *http.Response {
		return env.postForm(t, "/login", url.Values{"email": {email}, "password": {"wrong-one"}}, "")
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusUnauthorized, attempt("grace@example.com").StatusCode)
	}

	resp := attempt("GRACE@example.com")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	var body models.ErrorResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, models.CodeRateLimited, body.Code)

	// Other accounts from the same address keep their own budget.
	assert.Equal(t, http.StatusUnauthorized, attempt("someone@example.com").StatusCode)

	mr.FastForward(6 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, attempt("grace@example.com").StatusCode)
}
