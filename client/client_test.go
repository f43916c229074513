package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/jobboard/client"
	"github.com/jmcleod/jobboard/session"
	"github.com/jmcleod/jobboard/storage/memory"
)

// fakeAPI is an in-process backend. Protected routes accept only the current
// access token; the refresh endpoint trades refreshToken for nextAccess.
type fakeAPI struct {
	srv *httptest.Server
	mux *http.ServeMux

	mu           sync.Mutex
	access       string
	refreshToken string
	nextAccess   string
	rejectRenew  bool
	calls        map[string]int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		mux:          http.NewServeMux(),
		access:       "a1",
		refreshToken: "r1",
		nextAccess:   "a2",
		calls:        map[string]int{},
	}
	f.mux.HandleFunc("POST "+session.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.rejectRenew || body.RefreshToken != f.refreshToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid refresh token"})
			return
		}
		f.access = f.nextAccess
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": f.access})
	})
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) handle(pattern string, protected bool, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if protected && !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		h(w, r)
	})
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+f.access
}

func (f *fakeAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, baseURL string) (*client.Client, *session.Manager) {
	t.Helper()
	m, err := session.New(memory.NewStore(), baseURL, session.WithLogger(quietLogger()))
	require.NoError(t, err)
	c, err := client.New(baseURL, m, client.WithLogger(quietLogger()), client.WithUserAgent("jobboard-test"))
	require.NoError(t, err)
	return c, m
}

func TestNewValidation(t *testing.T) {
	m, err := session.New(memory.NewStore(), "http://localhost", session.WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = client.New("http://localhost", nil)
	assert.Error(t, err)
	_, err = client.New("ftp://localhost", m)
	assert.Error(t, err)
	_, err = client.New("http://localhost/", m)
	assert.NoError(t, err)
}

func TestListJobsSendsFilterAndHeaders(t *testing.T) {
	f := newFakeAPI(t)
	type captured struct {
		query     string
		requestID string
		userAgent string
		auth      string
	}
	seen := make(chan captured, 1)
	f.handle("GET /api/jobs", false, func(w http.ResponseWriter, r *http.Request) {
		seen <- captured{
			query:     r.URL.RawQuery,
			requestID: r.Header.Get(client.RequestIDHeader),
			userAgent: r.Header.Get("User-Agent"),
			auth:      r.Header.Get("Authorization"),
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"jobs":       []map[string]any{{"_id": "j1", "title": "Go Engineer", "company": "Acme", "type": "portal"}},
			"total":      1,
			"page":       2,
			"totalPages": 3,
		})
	})
	c, _ := newClient(t, f.srv.URL)

	list, err := c.ListJobs(context.Background(), client.JobFilter{
		Search:  "  ｇｏ engineer ",
		Company: "Acme",
		Type:    client.JobTypePortal,
		Page:    2,
	})
	require.NoError(t, err)
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, "j1", list.Jobs[0].ID)
	assert.Equal(t, 3, list.TotalPages)

	got := <-seen
	assert.Equal(t, "company=Acme&page=2&search=go+engineer&type=portal", got.query)
	assert.NotEmpty(t, got.requestID)
	assert.Equal(t, "jobboard-test", got.userAgent)
	assert.Empty(t, got.auth, "no token stored, no bearer header")
}

func TestProtectedRequestRenewsOnceAndReplays(t *testing.T) {
	f := newFakeAPI(t)
	bodies := make(chan string, 2)
	f.handle("POST /api/bookmarks", false, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies <- string(data)
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookmarked": true})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("stale", "r1"))

	res, err := c.ToggleBookmark(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, res.Bookmarked)

	assert.Equal(t, 1, f.count("POST "+session.RefreshPath))
	assert.Equal(t, 2, f.count("POST /api/bookmarks"))
	assert.JSONEq(t, `{"jobId":"j1"}`, <-bodies)
	assert.JSONEq(t, `{"jobId":"j1"}`, <-bodies, "replayed request carries the same body")
	assert.Equal(t, "a2", m.AccessToken())
}

func TestProtectedRequestWithOnlyRefreshTokenRenewsFirst(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /api/applications", true, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"applications": []any{}})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("", "r1"))

	apps, err := c.ListApplications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, apps)
	assert.Equal(t, 1, f.count("POST "+session.RefreshPath))
	assert.Equal(t, 1, f.count("GET /api/applications"))
}

func TestRejectedRenewalRequiresLogin(t *testing.T) {
	f := newFakeAPI(t)
	f.mu.Lock()
	f.rejectRenew = true
	f.mu.Unlock()
	f.handle("GET /api/applications", true, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"applications": []any{}})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("stale", "r1"))

	_, err := c.ListApplications(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.ErrorIs(t, err, session.ErrRefreshRejected)
	assert.Empty(t, m.AccessToken())
	assert.Empty(t, m.RefreshToken())
	assert.Equal(t, 1, f.count("GET /api/applications"), "no replay after a rejected renewal")
}

func TestSecond401IsNotRetriedAgain(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /api/applications", false, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "nope"})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	_, err := c.ListApplications(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 2, f.count("GET /api/applications"))
	assert.Equal(t, 1, f.count("POST "+session.RefreshPath))
}

func TestRenewalByAnotherRequestIsReused(t *testing.T) {
	f := newFakeAPI(t)
	var m *session.Manager
	f.handle("GET /api/applications", false, func(w http.ResponseWriter, r *http.Request) {
		if f.authorized(r) {
			writeJSON(w, http.StatusOK, map[string]any{"applications": []any{}})
			return
		}
		// A concurrent request finished its renewal while this one was out.
		f.mu.Lock()
		f.access = "a2"
		f.mu.Unlock()
		assert.NoError(t, m.SetTokens("a2", "r1"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	var c *client.Client
	c, m = newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("stale", "r1"))

	_, err := c.ListApplications(context.Background())
	require.NoError(t, err)
	assert.Zero(t, f.count("POST "+session.RefreshPath), "replays with the newer token instead of renewing again")
	assert.Equal(t, 2, f.count("GET /api/applications"))
}

func TestNoSessionFailsWithoutNetwork(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newClient(t, f.srv.URL)

	_, err := c.ListApplications(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.ErrorIs(t, err, session.ErrNoRefreshToken)
	assert.Zero(t, f.total())
}

func TestNetworkFailure(t *testing.T) {
	f := newFakeAPI(t)
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))
	f.srv.Close()

	_, err := c.ListJobs(context.Background(), client.JobFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNetworkFailure)
	assert.Equal(t, "a1", m.AccessToken(), "transport failures keep the session")
}

func TestErrorMapping(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /api/jobs/{id}", false, func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "missing":
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Job not found"})
		case "secret":
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "admins only"})
		case "broken":
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		default:
			writeJSON(w, http.StatusOK, map[string]any{"_id": r.PathValue("id"), "title": "Go Engineer", "type": "portal"})
		}
	})
	c, _ := newClient(t, f.srv.URL)
	ctx := context.Background()

	job, err := c.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "Go Engineer", job.Title)

	_, err = c.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, client.ErrNotFound)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Job not found", apiErr.Message)

	_, err = c.GetJob(ctx, "secret")
	assert.ErrorIs(t, err, client.ErrForbidden)

	_, err = c.GetJob(ctx, "broken")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Message)

	_, err = c.GetJob(ctx, "  ")
	assert.ErrorIs(t, err, client.ErrInvalidArgument)
}

func TestGetJobAcceptsEnvelope(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /api/jobs/{id}", false, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"job": map[string]any{"_id": "j9", "title": "SRE"}})
	})
	c, _ := newClient(t, f.srv.URL)

	job, err := c.GetJob(context.Background(), "j9")
	require.NoError(t, err)
	assert.Equal(t, "j9", job.ID)
	assert.Equal(t, "SRE", job.Title)
}

func TestLoginStoresTokensAndUser(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("POST /api/auth/login", false, func(w http.ResponseWriter, r *http.Request) {
		var creds client.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "hunter2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  "a1",
			"refreshToken": "r1",
			"user":         map[string]any{"_id": "u1", "name": "Ada", "email": creds.Email, "role": "user"},
		})
	})
	c, m := newClient(t, f.srv.URL)
	ctx := context.Background()

	_, err := c.Login(ctx, client.Credentials{Email: "ada@example.com", Password: "wrong"})
	require.Error(t, err)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Empty(t, m.AccessToken())
	assert.Zero(t, f.count("POST "+session.RefreshPath), "login failures never trigger a renewal")

	u, err := c.Login(ctx, client.Credentials{Email: " ada@example.com ", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "a1", m.AccessToken())
	assert.Equal(t, "r1", m.RefreshToken())
	assert.Equal(t, u, m.User())

	_, err = c.Login(ctx, client.Credentials{})
	assert.ErrorIs(t, err, client.ErrInvalidArgument)
}

func TestSignup(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("POST /api/auth/register", false, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"accessToken":  "a1",
			"refreshToken": "r1",
			"user":         map[string]any{"_id": "u2", "name": "Grace"},
		})
	})
	c, m := newClient(t, f.srv.URL)

	u, err := c.Signup(context.Background(), client.Registration{Name: "Grace", Email: "g@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Grace", u.Name)
	assert.Equal(t, session.Authenticated, m.State())
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("POST /api/auth/logout", false, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, m.AccessToken())
	assert.Empty(t, m.RefreshToken())
	assert.Equal(t, 1, f.count("POST /api/auth/logout"))

	// Already logged out: no server call.
	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, 1, f.count("POST /api/auth/logout"))
}

func TestProfileRecordsUser(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /api/auth/me", true, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"_id": "u1", "email": "boss@admin.io"}})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	u, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, u, m.User())

	again, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, u, again)
	assert.Equal(t, 1, f.count("GET /api/auth/me"))
}

func TestAdminOperationsRejectKnownNonAdmin(t *testing.T) {
	f := newFakeAPI(t)
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))
	m.SetUser(&session.User{ID: "u1", Email: "ada@example.com", Role: "user"})
	ctx := context.Background()

	_, err := c.Dashboard(ctx)
	assert.ErrorIs(t, err, client.ErrForbidden)
	err = c.DeleteJob(ctx, "j1")
	assert.ErrorIs(t, err, client.ErrForbidden)
	_, err = c.CreateJob(ctx, client.NewJob{Title: "x", Company: "y"})
	assert.ErrorIs(t, err, client.ErrForbidden)
	assert.Zero(t, f.total())
}

func TestDashboardForAdmin(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /api/admin/dashboard", true, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"stats": map[string]int{"totalJobs": 4, "totalApplications": 9, "totalUsers": 2},
		})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))
	m.SetUser(&session.User{ID: "u1", Role: "admin"})

	d, err := c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, d.Stats.TotalApplications)
}

func TestCreateJobValidation(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newClient(t, f.srv.URL)
	ctx := context.Background()

	_, err := c.CreateJob(ctx, client.NewJob{Company: "Acme"})
	assert.ErrorIs(t, err, client.ErrInvalidArgument)
	_, err = c.CreateJob(ctx, client.NewJob{Title: "SRE", Company: "Acme", Type: client.JobTypeCompany})
	assert.ErrorIs(t, err, client.ErrInvalidArgument)
	_, err = c.CreateJob(ctx, client.NewJob{Title: "SRE", Company: "Acme", Type: "contract"})
	assert.ErrorIs(t, err, client.ErrInvalidArgument)
	assert.Zero(t, f.total())
}

func TestCreateJobNoContent(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("POST /api/jobs", true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	job, err := c.CreateJob(context.Background(), client.NewJob{Title: " SRE ", Company: "Acme", Location: "Remote"})
	require.NoError(t, err)
	assert.Equal(t, "SRE", job.Title)
	assert.Equal(t, "Acme", job.Company)
	assert.Equal(t, client.JobTypePortal, job.Type)
	assert.Equal(t, 1, f.count("POST /api/jobs"))
}

func TestEmptySuccessBodyForDecodedResult(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("POST /api/bookmarks", true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	_, err := c.ToggleBookmark(context.Background(), "j1")
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
}

// applyAPI serves a portal job j1, a company job j2 and an application list.
func applyAPI(t *testing.T, appliedTo ...string) *fakeAPI {
	t.Helper()
	f := newFakeAPI(t)
	f.handle("GET /api/jobs/{id}", false, func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "j1":
			writeJSON(w, http.StatusOK, map[string]any{"_id": "j1", "title": "Go Engineer", "company": "Acme", "type": "portal"})
		case "j2":
			writeJSON(w, http.StatusOK, map[string]any{"_id": "j2", "title": "SRE", "type": "company", "applyLink": "https://acme.example/careers"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Job not found"})
		}
	})
	f.handle("GET /api/applications", true, func(w http.ResponseWriter, r *http.Request) {
		apps := []map[string]any{}
		for _, id := range appliedTo {
			apps = append(apps, map[string]any{"_id": "app-" + id, "jobId": map[string]any{"_id": id, "title": "t"}, "status": "submitted"})
		}
		writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
	})
	return f
}

func TestApplyWithResume(t *testing.T) {
	f := applyAPI(t)
	type upload struct {
		filename string
		content  string
	}
	uploads := make(chan upload, 1)
	f.handle("POST /api/upload/resume", true, func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("resume")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		data, _ := io.ReadAll(file)
		uploads <- upload{filename: hdr.Filename, content: string(data)}
		writeJSON(w, http.StatusOK, map[string]string{"resumeUrl": "https://files.example/r.pdf"})
	})
	submitted := make(chan map[string]string, 1)
	f.handle("POST /api/applications", true, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		submitted <- body
		writeJSON(w, http.StatusCreated, map[string]any{
			"message":     "Application submitted",
			"application": map[string]any{"_id": "app1", "jobId": "j1", "status": "submitted"},
		})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	app, err := c.Apply(context.Background(), "j1", client.ApplyRequest{
		CoverLetter: "Hello",
		Resume:      &client.Resume{Name: "cv.pdf", Content: strings.NewReader("%PDF-1.7")},
	})
	require.NoError(t, err)
	assert.Equal(t, "app1", app.ID)
	assert.Equal(t, "j1", app.Job.ID)
	assert.Equal(t, "Go Engineer", app.Job.Title)
	assert.Equal(t, client.StatusSubmitted, app.Status)

	up := <-uploads
	assert.Equal(t, "cv.pdf", up.filename)
	assert.Equal(t, "%PDF-1.7", up.content)
	body := <-submitted
	assert.Equal(t, "j1", body["jobId"])
	assert.Equal(t, "Hello", body["coverLetter"])
	assert.Equal(t, "https://files.example/r.pdf", body["resumeUrl"])
}

func TestApplyEmptyCreatedBody(t *testing.T) {
	f := applyAPI(t)
	f.handle("POST /api/applications", true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	app, err := c.Apply(context.Background(), "j1", client.ApplyRequest{CoverLetter: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "j1", app.Job.ID)
	assert.Equal(t, "Go Engineer", app.Job.Title)
	assert.Equal(t, client.StatusSubmitted, app.Status)
	assert.Equal(t, 1, f.count("POST /api/applications"))
}

func TestApplyCompanyJobIsExternal(t *testing.T) {
	f := applyAPI(t)
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	_, err := c.Apply(context.Background(), "j2", client.ApplyRequest{})
	var ext *client.ExternalApplyError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "https://acme.example/careers", ext.URL)
	assert.Zero(t, f.count("POST /api/applications"))
}

func TestApplyTwice(t *testing.T) {
	f := applyAPI(t, "j1")
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	_, err := c.Apply(context.Background(), "j1", client.ApplyRequest{})
	assert.ErrorIs(t, err, client.ErrAlreadyApplied)
	assert.Zero(t, f.count("POST /api/applications"))
}

func TestApplyConflictMapsToAlreadyApplied(t *testing.T) {
	f := applyAPI(t)
	f.handle("POST /api/applications", true, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Already applied"})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	_, err := c.Apply(context.Background(), "j1", client.ApplyRequest{CoverLetter: "hi"})
	assert.ErrorIs(t, err, client.ErrAlreadyApplied)
}

func TestApplyUploadFailureAbortsApplication(t *testing.T) {
	f := applyAPI(t)
	f.handle("POST /api/upload/resume", true, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "storage full"})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	_, err := c.Apply(context.Background(), "j1", client.ApplyRequest{
		Resume: &client.Resume{Name: "cv.docx", Content: strings.NewReader("x")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUploadFailed)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "storage full", apiErr.Message)
	assert.Zero(t, f.count("POST /api/applications"))
}

func TestApplyContinuesWithoutResumeWhenAsked(t *testing.T) {
	f := applyAPI(t)
	f.handle("POST /api/upload/resume", true, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "storage full"})
	})
	submitted := make(chan map[string]any, 1)
	f.handle("POST /api/applications", true, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		submitted <- body
		writeJSON(w, http.StatusCreated, map[string]any{"application": map[string]any{"_id": "app1", "jobId": "j1"}})
	})
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	app, err := c.Apply(context.Background(), "j1", client.ApplyRequest{
		CoverLetter:           "hi",
		Resume:                &client.Resume{Name: "cv.pdf", Content: strings.NewReader("x")},
		ContinueWithoutResume: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "app1", app.ID)
	body := <-submitted
	assert.Equal(t, "hi", body["coverLetter"])
	assert.NotContains(t, body, "resumeUrl")
	assert.Equal(t, 1, f.count("POST /api/upload/resume"))
}

func TestUploadResumeValidation(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newClient(t, f.srv.URL)
	ctx := context.Background()

	_, err := c.UploadResume(ctx, "cv.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, client.ErrUploadFailed)
	assert.ErrorIs(t, err, client.ErrInvalidArgument)

	big := strings.NewReader(strings.Repeat("a", client.MaxResumeSize+1))
	_, err = c.UploadResume(ctx, "cv.pdf", big)
	assert.ErrorIs(t, err, client.ErrInvalidArgument)

	assert.Zero(t, f.total())
}

func TestHasApplied(t *testing.T) {
	f := applyAPI(t, "j7")
	c, m := newClient(t, f.srv.URL)
	require.NoError(t, m.SetTokens("a1", "r1"))

	ok, err := c.HasApplied(context.Background(), "j7")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.HasApplied(context.Background(), "j1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilterOptions(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /api/jobs/filter-options", false, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"companies": []string{"Acme"}, "locations": []string{"Remote"}})
	})
	c, _ := newClient(t, f.srv.URL)

	opts, err := c.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, opts.Companies)
	assert.Equal(t, []string{"Remote"}, opts.Locations)
}

func TestErrorsStrings(t *testing.T) {
	ext := &client.ExternalApplyError{JobID: "j2", URL: "https://x"}
	assert.Contains(t, ext.Error(), "https://x")
	apiErr := &client.APIError{StatusCode: 500, Message: "boom"}
	assert.Equal(t, "api error 500: boom", apiErr.Error())
	assert.True(t, errors.Is(client.ErrNetworkFailure, session.ErrNetworkFailure))
}
