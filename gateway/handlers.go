package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/jobboard/client"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = client.MaxResumeSize + 1<<20
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", client.ErrInvalidArgument, err)
	}
	return nil
}

func (g *Gateway) sessionResponse() SessionResponse {
	u := g.session.User()
	return SessionResponse{
		State:    g.session.State(),
		Renewing: g.session.Renewing(),
		User:     u,
		Admin:    u.IsAdmin(),
	}
}

// GetSession reports the session state. When tokens exist but the user has
// not been validated yet, the profile is fetched first.
func (g *Gateway) GetSession(w http.ResponseWriter, r *http.Request) {
	if g.session.User() == nil && (g.session.AccessToken() != "" || g.session.RefreshToken() != "") {
		if _, err := g.client.Profile(r.Context()); err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				resp := g.sessionResponse()
				resp.Redirect = LoginPath
				writeJSON(w, http.StatusOK, resp)
				return
			}
			g.logger.Warn("validating session", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, g.sessionResponse())
}

// Login authenticates against the backend and stores the resulting session.
func (g *Gateway) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if blocked, retryAfter := g.rateLimiter.check(ip); blocked {
		writeRateLimited(w, retryAfter)
		return
	}

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		mapError(w, err)
		return
	}
	if _, err := g.client.Login(r.Context(), client.Credentials{Email: req.Email, Password: req.Password}); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			g.rateLimiter.recordFailure(ip)
			g.logger.Warn("login failed", "ip", ip)
		}
		mapError(w, err)
		return
	}
	g.rateLimiter.recordSuccess(ip)
	g.logger.Info("login succeeded", "ip", ip)
	writeJSON(w, http.StatusOK, g.sessionResponse())
}

// Logout ends the session.
func (g *Gateway) Logout(w http.ResponseWriter, r *http.Request) {
	if err := g.client.Logout(r.Context()); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.sessionResponse())
}

// Refresh renews the access token now.
func (g *Gateway) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := g.session.Refresh(r.Context()); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.sessionResponse())
}

func parseJobFilter(r *http.Request) client.JobFilter {
	q := r.URL.Query()
	f := client.JobFilter{
		Search:     q.Get("search"),
		Company:    q.Get("company"),
		Location:   q.Get("location"),
		Experience: q.Get("experience"),
		Type:       client.JobType(q.Get("type")),
		Salary:     q.Get("salary"),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		f.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	return f
}

// ListJobs returns a page of jobs.
func (g *Gateway) ListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := g.client.ListJobs(r.Context(), parseJobFilter(r))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// FilterOptions returns the distinct companies and locations.
func (g *Gateway) FilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := g.client.FilterOptions(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// GetJob returns one job.
func (g *Gateway) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := g.client.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Apply submits an application. Multipart bodies may attach a resume file in
// the "resume" field; the cover letter is read from "coverLetter".
func (g *Gateway) Apply(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := parseApply(w, r)
	if err != nil {
		mapError(w, err)
		return
	}
	defer cleanup()

	app, err := g.client.Apply(r.Context(), chi.URLParam(r, "jobID"), req)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func parseApply(w http.ResponseWriter, r *http.Request) (client.ApplyRequest, func(), error) {
	var req client.ApplyRequest
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body ApplyJSONRequest
		if err := decodeJSON(w, r, &body); err != nil {
			return req, noop, err
		}
		req.CoverLetter = body.CoverLetter
		return req, noop, nil
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		if err := r.ParseMultipartForm(client.MaxResumeSize); err != nil {
			return req, noop, fmt.Errorf("%w: invalid multipart body: %w", client.ErrInvalidArgument, err)
		}
		cleanup := func() { r.MultipartForm.RemoveAll() }
		req.CoverLetter = r.FormValue("coverLetter")
		req.ContinueWithoutResume, _ = strconv.ParseBool(r.FormValue(continueWithoutResumeField))
		file, hdr, err := r.FormFile("resume")
		switch {
		case err == nil:
			req.Resume = &client.Resume{Name: hdr.Filename, Content: file}
			return req, func() { file.Close(); cleanup() }, nil
		case errors.Is(err, http.ErrMissingFile):
			return req, cleanup, nil
		default:
			cleanup()
			return req, noop, fmt.Errorf("%w: reading resume: %w", client.ErrInvalidArgument, err)
		}
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return req, noop, fmt.Errorf("%w: invalid form body: %w", client.ErrInvalidArgument, err)
		}
		req.CoverLetter = r.PostFormValue("coverLetter")
		return req, noop, nil
	}
}

// ToggleBookmark flips the bookmark on a job.
func (g *Gateway) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	res, err := g.client.ToggleBookmark(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListApplications returns the user's applications.
func (g *Gateway) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := g.client.ListApplications(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	if apps == nil {
		apps = []client.Application{}
	}
	writeJSON(w, http.StatusOK, ApplicationsResponse{Applications: apps})
}

// Dashboard returns the admin overview.
func (g *Gateway) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := g.client.Dashboard(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateJob posts a new job.
func (g *Gateway) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req client.NewJob
	if err := decodeJSON(w, r, &req); err != nil {
		mapError(w, err)
		return
	}
	job, err := g.client.CreateJob(r.Context(), req)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// DeleteJob removes a job.
func (g *Gateway) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := g.client.DeleteJob(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
