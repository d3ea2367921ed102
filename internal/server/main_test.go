package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"workhive/internal/cache"
	"workhive/internal/config"
	"workhive/internal/database"
	"workhive/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret-key-12345678901234567890123456789012"

// newTestServer builds a full server over sqlite, miniredis and an in-memory
// object store.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	cfg := &config.Config{
		JWTSecret: testJWTSecret,
		Port:      "0",
		Env:       "test",
	}

	return NewServerWithDeps(cfg, db, rdb, storage.NewMemoryStore(""))
}

// doJSON performs a JSON request against the test server.
func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

// testFile is an in-memory multipart file upload.
type testFile struct {
	Field    string
	Filename string
	Content  string
}

// doMultipart performs a multipart form request against the test server.
func doMultipart(t *testing.T, s *Server, method, path, token string, fields map[string]string, files []testFile) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.Field, f.Filename)
		require.NoError(t, err)
		_, err = io.Copy(fw, strings.NewReader(f.Content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

// decodeBody parses a JSON response body into a generic map.
func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// decodeList parses a JSON array response body.
func decodeList(t *testing.T, resp *http.Response) []map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// signupTestUser registers a user through the API and returns the token and ID.
func signupTestUser(t *testing.T, s *Server, email string) (string, uint) {
	t.Helper()

	resp := doMultipart(t, s, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":     email,
		"password":  "secret123",
		"full_name": "Test User",
		"place":     "Kochi",
		"skills":    "plumbing",
	}, []testFile{
		{Field: "pic", Filename: "avatar.png", Content: "png-bytes"},
		{Field: "cv", Filename: "cv.pdf", Content: "pdf-bytes"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	user, _ := body["user"].(map[string]interface{})
	require.NotNil(t, user)
	id, _ := user["id"].(float64)
	require.NotZero(t, id)

	return token, uint(id)
}

// promoteToAdmin flips the is_admin column directly and drops the cached
// profile so the flag takes effect immediately.
func promoteToAdmin(t *testing.T, s *Server, userID uint) {
	t.Helper()
	require.NoError(t, s.db.Exec("UPDATE users SET is_admin = ? WHERE id = ?", true, userID).Error)
	cache.InvalidateUser(t.Context(), userID)
}

// createTestJob posts a job through the API and returns its ID.
func createTestJob(t *testing.T, s *Server, token, title string, photos int) uint {
	t.Helper()

	files := make([]testFile, 0, photos)
	for i := 0; i < photos; i++ {
		files = append(files, testFile{
			Field:    "photos",
			Filename: fmt.Sprintf("site%d.jpg", i),
			Content:  "jpg-bytes",
		})
	}

	resp := doMultipart(t, s, http.MethodPost, "/api/jobs", token, map[string]string{
		"title":       title,
		"description": "fix the kitchen sink",
		"skills":      "plumbing",
		"location":    "Kochi",
		"pay":         "500",
		"pay_type":    "Daily",
	}, files)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	id, _ := body["id"].(float64)
	require.NotZero(t, id)
	return uint(id)
}
