// Package remotetest provides an in-memory GitHub API server for tests of
// code that publishes releases, uploads assets and edits gists.
package remotetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-github/v39/github"
)

// Server fakes the releases, assets and gists endpoints of the GitHub API.
type Server struct {
	mu sync.Mutex

	server *httptest.Server

	latestStatus int
	latest       *github.RepositoryRelease
	created      []*github.RepositoryRelease
	nextID       int64

	assets  map[string]int64
	deleted []int64
	uploads map[string][]byte

	gists         map[string]map[string]string
	gistCreates   int
	gistPatches   int
	gistWithoutID bool
	onGistGet     func(s *Server, id string)

	authHeaders []string
	userAgents  []string
}

// NewServer starts a fake GitHub closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		nextID:  100,
		assets:  make(map[string]int64),
		uploads: make(map[string][]byte),
		gists:   make(map[string]map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/releases/latest", s.handleLatest)
	mux.HandleFunc("POST /repos/{owner}/{repo}/releases", s.handleCreateRelease)
	mux.HandleFunc("GET /repos/{owner}/{repo}/releases/{id}/assets", s.handleListAssets)
	mux.HandleFunc("DELETE /repos/{owner}/{repo}/releases/assets/{id}", s.handleDeleteAsset)
	mux.HandleFunc("POST /uploads/repos/{owner}/{repo}/releases/{id}/assets", s.handleUpload)
	mux.HandleFunc("POST /gists", s.handleCreateGist)
	mux.HandleFunc("GET /gists/{id}", s.handleGetGist)
	mux.HandleFunc("PATCH /gists/{id}", s.handleEditGist)

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
		s.userAgents = append(s.userAgents, r.Header.Get("User-Agent"))
		s.mu.Unlock()

		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.server.Close)

	return s
}

// URL is the API base URL.
func (s *Server) URL() string {
	return s.server.URL + "/"
}

// UploadURL is the asset upload base URL.
func (s *Server) UploadURL() string {
	return s.server.URL + "/uploads/"
}

// HTTPClient returns a client configured for the server.
func (s *Server) HTTPClient() *http.Client {
	return s.server.Client()
}

// SetLatest makes a release named name the latest release, with id 1.
func (s *Server) SetLatest(owner, repo, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = s.release(owner, repo, 1, name)
}

// SetLatestStatus makes the latest release lookup fail with status.
func (s *Server) SetLatestStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latestStatus = status
}

// AddAsset registers an existing asset.
func (s *Server) AddAsset(name string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets[name] = id
}

// HasAsset reports whether an asset called name exists.
func (s *Server) HasAsset(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.assets[name]

	return ok
}

// CreatedReleases returns releases created through the API.
func (s *Server) CreatedReleases() []*github.RepositoryRelease {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*github.RepositoryRelease(nil), s.created...)
}

// Uploaded returns the body of the asset called name.
func (s *Server) Uploaded(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return string(s.uploads[name])
}

// DeletedAssets returns ids of deleted assets.
func (s *Server) DeletedAssets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int64(nil), s.deleted...)
}

// RequestHeaders returns the Authorization and User-Agent headers of every request.
func (s *Server) RequestHeaders() (auth, agents []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.authHeaders...), append([]string(nil), s.userAgents...)
}

// GistCounts returns how many gists were created and edited.
func (s *Server) GistCounts() (creates, patches int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gistCreates, s.gistPatches
}

// DropGistIDs makes gist creation succeed without returning an id.
func (s *Server) DropGistIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gistWithoutID = true
}

// OnGistGet registers a hook run after each gist read has been captured.
func (s *Server) OnGistGet(hook func(s *Server, id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onGistGet = hook
}

// SetGist stores a gist with a single file.
func (s *Server) SetGist(id, filename, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gists[id] = map[string]string{filename: content}
}

// GistFile returns the content of one gist file.
func (s *Server) GistFile(id, filename string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gists[id][filename]
}

func (s *Server) release(owner, repo string, id int64, name string) *github.RepositoryRelease {
	//nolint:exhaustruct // Fixture.
	return &github.RepositoryRelease{
		ID:      github.Int64(id),
		Name:    github.String(name),
		TagName: github.String(name),
		UploadURL: github.String(fmt.Sprintf("%s/uploads/repos/%s/%s/releases/%d/assets{?name,label}",
			s.server.URL, owner, repo, id)),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.latestStatus != 0:
		writeMessage(w, s.latestStatus, http.StatusText(s.latestStatus))
	case s.latest == nil:
		writeMessage(w, http.StatusNotFound, "Not Found")
	default:
		writeJSON(w, http.StatusOK, s.latest)
	}
}

func (s *Server) handleCreateRelease(w http.ResponseWriter, r *http.Request) {
	var req github.RepositoryRelease
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	created := s.release(r.PathValue("owner"), r.PathValue("repo"), s.nextID, req.GetName())
	created.Body = req.Body
	created.Draft = req.Draft
	created.Prerelease = req.Prerelease
	created.TargetCommitish = req.TargetCommitish
	s.created = append(s.created, created)
	s.latest = created

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListAssets(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := make([]*github.ReleaseAsset, 0, len(s.assets))
	for name, id := range s.assets {
		//nolint:exhaustruct // Fixture.
		assets = append(assets, &github.ReleaseAsset{ID: github.Int64(id), Name: github.String(name)})
	}

	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, assetID := range s.assets {
		if assetID == id {
			delete(s.assets, name)
		}
	}

	s.deleted = append(s.deleted, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[name]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation Failed",
			"errors":  []map[string]string{{"resource": "ReleaseAsset", "code": "already_exists", "field": "name"}},
		})

		return
	}

	s.nextID++
	s.assets[name] = s.nextID
	s.uploads[name] = body

	assetURL := fmt.Sprintf("%s/repos/%s/%s/releases/assets/%d",
		s.server.URL, r.PathValue("owner"), r.PathValue("repo"), s.nextID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           s.nextID,
		"name":         name,
		"content_type": r.Header.Get("Content-Type"),
		"url":          assetURL,
	})
}

type gistPayload struct {
	ID          string                       `json:"id,omitempty"`
	Description string                       `json:"description,omitempty"`
	Public      *bool                        `json:"public,omitempty"`
	Files       map[string]map[string]string `json:"files"`
}

func (s *Server) handleCreateGist(w http.ResponseWriter, r *http.Request) {
	var req gistPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gistCreates++

	if s.gistWithoutID {
		writeJSON(w, http.StatusCreated, map[string]any{"files": req.Files})

		return
	}

	id := fmt.Sprintf("gist%d", s.gistCreates)
	files := make(map[string]string, len(req.Files))

	for name, file := range req.Files {
		files[name] = file["content"]
	}

	s.gists[id] = files
	req.ID = id

	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleGetGist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()

	files, ok := s.gists[id]
	if !ok {
		s.mu.Unlock()
		writeMessage(w, http.StatusNotFound, "Not Found")

		return
	}

	out := gistPayload{ID: id, Files: make(map[string]map[string]string, len(files))}
	for name, content := range files {
		out.Files[name] = map[string]string{"filename": name, "content": content}
	}

	hook := s.onGistGet
	s.mu.Unlock()

	if hook != nil {
		hook(s, id)
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEditGist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req gistPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gistPatches++

	if _, ok := s.gists[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Not Found")

		return
	}

	for name, file := range req.Files {
		s.gists[id][name] = file["content"]
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}
