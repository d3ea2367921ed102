package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJob(t *testing.T) {
	s := newTestServer(t)
	token, _ := signupTestUser(t, s, "poster@example.com")

	t.Run("Success Starts Pending", func(t *testing.T) {
		resp := doMultipart(t, s, http.MethodPost, "/api/jobs", token, map[string]string{
			"title":       "Kitchen sink repair",
			"description": "Leaking trap under the sink",
			"skills":      "plumbing",
			"location":    "Kochi",
			"pay":         "800",
			"pay_type":    "Daily",
		}, []testFile{
			{Field: "photos", Filename: "sink.jpg", Content: "jpg-bytes"},
			{Field: "photos", Filename: "trap.jpg", Content: "jpg-bytes"},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Pending", body["flag"])
		urls, _ := body["url_list"].([]interface{})
		assert.Len(t, urls, 2)
	})

	t.Run("Too Many Photos", func(t *testing.T) {
		files := make([]testFile, 4)
		for i := range files {
			files[i] = testFile{Field: "photos", Filename: fmt.Sprintf("p%d.jpg", i), Content: "x"}
		}
		resp := doMultipart(t, s, http.MethodPost, "/api/jobs", token, map[string]string{
			"title":       "Too many photos",
			"description": "d",
			"skills":      "s",
			"location":    "l",
			"pay":         "100",
			"pay_type":    "Hourly",
		}, files)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Missing Title", func(t *testing.T) {
		resp := doMultipart(t, s, http.MethodPost, "/api/jobs", token, map[string]string{
			"description": "d",
			"skills":      "s",
			"location":    "l",
			"pay":         "100",
			"pay_type":    "Daily",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Bad Pay Type", func(t *testing.T) {
		resp := doMultipart(t, s, http.MethodPost, "/api/jobs", token, map[string]string{
			"title":       "Bad pay type",
			"description": "d",
			"skills":      "s",
			"location":    "l",
			"pay":         "100",
			"pay_type":    "Weekly",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Requires Auth", func(t *testing.T) {
		resp := doMultipart(t, s, http.MethodPost, "/api/jobs", "", map[string]string{
			"title": "anonymous",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestBrowseApprovalGating(t *testing.T) {
	s := newTestServer(t)
	posterToken, _ := signupTestUser(t, s, "poster@example.com")
	browserToken, _ := signupTestUser(t, s, "browser@example.com")
	adminToken, adminID := signupTestUser(t, s, "admin@example.com")
	promoteToAdmin(t, s, adminID)

	jobID := createTestJob(t, s, posterToken, "Garden fencing", 1)

	// Pending posts never appear in the feed.
	resp := doJSON(t, s, http.MethodGet, "/api/jobs", browserToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeList(t, resp))

	resp = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/admin/jobs/%d/approve", jobID), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/jobs", browserToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	jobs := decodeList(t, resp)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Garden fencing", jobs[0]["title"])

	// The feed always excludes the viewer's own posts.
	resp = doJSON(t, s, http.MethodGet, "/api/jobs", posterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeList(t, resp))

	// The owner's dashboard shows the post in any state.
	resp = doJSON(t, s, http.MethodGet, "/api/jobs/mine", posterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeList(t, resp), 1)
}

func TestBrowseSearch(t *testing.T) {
	s := newTestServer(t)
	posterToken, _ := signupTestUser(t, s, "poster@example.com")
	browserToken, _ := signupTestUser(t, s, "browser@example.com")
	adminToken, adminID := signupTestUser(t, s, "admin@example.com")
	promoteToAdmin(t, s, adminID)

	first := createTestJob(t, s, posterToken, "Garden fencing", 0)
	second := createTestJob(t, s, posterToken, "Roof painting", 0)
	for _, id := range []uint{first, second} {
		resp := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/admin/jobs/%d/approve", id), adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := doJSON(t, s, http.MethodGet, "/api/jobs?search=fencing", browserToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	jobs := decodeList(t, resp)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Garden fencing", jobs[0]["title"])
}

func TestGetJobVisibility(t *testing.T) {
	s := newTestServer(t)
	posterToken, _ := signupTestUser(t, s, "poster@example.com")
	strangerToken, _ := signupTestUser(t, s, "stranger@example.com")
	adminToken, adminID := signupTestUser(t, s, "admin@example.com")
	promoteToAdmin(t, s, adminID)

	jobID := createTestJob(t, s, posterToken, "Pending job", 0)
	path := fmt.Sprintf("/api/jobs/%d", jobID)

	// Owner and admins see pending posts; strangers get a 404.
	resp := doJSON(t, s, http.MethodGet, path, posterToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, path, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, path, strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateJob(t *testing.T) {
	s := newTestServer(t)
	posterToken, _ := signupTestUser(t, s, "poster@example.com")
	strangerToken, _ := signupTestUser(t, s, "stranger@example.com")

	jobID := createTestJob(t, s, posterToken, "Two photo job", 2)
	path := fmt.Sprintf("/api/jobs/%d", jobID)

	t.Run("Merge Scalars", func(t *testing.T) {
		resp := doMultipart(t, s, http.MethodPut, path, posterToken, map[string]string{
			"pay": "950",
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "950", body["pay"])
		assert.Equal(t, "Two photo job", body["title"])
	})

	t.Run("Append Within Cap", func(t *testing.T) {
		resp := doMultipart(t, s, http.MethodPut, path, posterToken, nil, []testFile{
			{Field: "photos", Filename: "third.jpg", Content: "jpg-bytes"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		urls, _ := body["url_list"].([]interface{})
		assert.Len(t, urls, 3)
	})

	t.Run("Cap Enforced On Edit", func(t *testing.T) {
		resp := doMultipart(t, s, http.MethodPut, path, posterToken, nil, []testFile{
			{Field: "photos", Filename: "fourth.jpg", Content: "jpg-bytes"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Stranger Cannot Edit", func(t *testing.T) {
		resp := doMultipart(t, s, http.MethodPut, path, strangerToken, map[string]string{
			"title": "hijacked",
		}, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestModeration(t *testing.T) {
	s := newTestServer(t)
	posterToken, _ := signupTestUser(t, s, "poster@example.com")
	adminToken, adminID := signupTestUser(t, s, "admin@example.com")
	promoteToAdmin(t, s, adminID)

	jobID := createTestJob(t, s, posterToken, "Moderated job", 0)
	approve := fmt.Sprintf("/api/admin/jobs/%d/approve", jobID)
	reject := fmt.Sprintf("/api/admin/jobs/%d/reject", jobID)

	resp := doJSON(t, s, http.MethodPost, approve, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Approved", decodeBody(t, resp)["flag"])

	// Repeating the same decision is a no-op.
	resp = doJSON(t, s, http.MethodPost, approve, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Approved", decodeBody(t, resp)["flag"])

	// Reversing a decision conflicts.
	resp = doJSON(t, s, http.MethodPost, reject, adminToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminAccessControl(t *testing.T) {
	s := newTestServer(t)
	userToken, _ := signupTestUser(t, s, "plain@example.com")
	adminToken, adminID := signupTestUser(t, s, "admin@example.com")
	promoteToAdmin(t, s, adminID)

	jobID := createTestJob(t, s, userToken, "Queued job", 0)

	t.Run("Non-Admin Forbidden", func(t *testing.T) {
		for _, req := range []struct{ method, path string }{
			{http.MethodGet, "/api/admin/jobs"},
			{http.MethodPost, fmt.Sprintf("/api/admin/jobs/%d/approve", jobID)},
			{http.MethodPost, fmt.Sprintf("/api/admin/jobs/%d/reject", jobID)},
			{http.MethodDelete, fmt.Sprintf("/api/admin/jobs/%d", jobID)},
		} {
			resp := doJSON(t, s, req.method, req.path, userToken, nil)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode, "%s %s", req.method, req.path)
		}
	})

	t.Run("Queue Lists Pending", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodGet, "/api/admin/jobs?flag=Pending", adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		jobs, _ := body["jobs"].([]interface{})
		assert.Len(t, jobs, 1)
		assert.Equal(t, float64(1), body["pending_count"])
	})

	t.Run("Admin Deletes Any Post", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/admin/jobs/%d", jobID), adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, s, http.MethodGet, "/api/jobs/mine", userToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decodeList(t, resp))
	})
}

func TestDeleteJob(t *testing.T) {
	s := newTestServer(t)
	posterToken, _ := signupTestUser(t, s, "poster@example.com")
	strangerToken, _ := signupTestUser(t, s, "stranger@example.com")

	jobID := createTestJob(t, s, posterToken, "Disposable job", 0)
	path := fmt.Sprintf("/api/jobs/%d", jobID)

	resp := doJSON(t, s, http.MethodDelete, path, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, s, http.MethodDelete, path, posterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodDelete, path, posterToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
