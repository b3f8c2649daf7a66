package testutil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memodesk/internal/checksum"
)

// FakeHost emulates the raw-content and contents endpoints for one file.
type FakeHost struct {
	Server *httptest.Server
	Token  string

	mu      sync.Mutex
	content []byte
	sha     string
	exists  bool

	// FailRaw makes raw GETs answer 500.
	FailRaw bool
	// RaceAfterMetadata simulates another writer landing between the
	// metadata GET and the PUT: the stored version changes right after the
	// token is handed out.
	RaceAfterMetadata bool
	// Delay stalls every metadata GET, keeping a push in flight.
	Delay time.Duration
	// FailPuts makes the next FailPuts PUTs answer 409.
	FailPuts int

	RawGets, MetaGets, Puts int
	LastMessage          string
	LastPutSHA           string
}

// NewFakeHost starts a fake host that is shut down with the test.
func NewFakeHost(t *testing.T, token string) *FakeHost {
	t.Helper()
	h := &FakeHost{Token: token}

	r := chi.NewRouter()
	r.Get("/raw/{owner}/{repo}/{branch}/*", h.raw)
	r.Get("/api/repos/{owner}/{repo}/contents/*", h.meta)
	r.Put("/api/repos/{owner}/{repo}/contents/*", h.put)

	h.Server = httptest.NewServer(r)
	t.Cleanup(h.Server.Close)
	return h
}

// APIBase is the contents API base URL.
func (h *FakeHost) APIBase() string { return h.Server.URL + "/api" }

// RawBase is the raw-content base URL.
func (h *FakeHost) RawBase() string { return h.Server.URL + "/raw" }

// Seed stores content as if it had been committed already.
func (h *FakeHost) Seed(content []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setLocked(content)
}

// Content returns the stored body and whether the file exists.
func (h *FakeHost) Content() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.content...), h.exists
}

// SetFailRaw toggles raw GET failures.
func (h *FakeHost) SetFailRaw(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.FailRaw = v
}

// SetRaceAfterMetadata toggles the simulated concurrent writer.
func (h *FakeHost) SetRaceAfterMetadata(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.RaceAfterMetadata = v
}

// SetDelay changes the metadata delay.
func (h *FakeHost) SetDelay(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Delay = d
}

// SetFailPuts rejects the next n PUTs with a version conflict.
func (h *FakeHost) SetFailPuts(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.FailPuts = n
}

// LastPut returns the version token and commit message of the latest PUT.
func (h *FakeHost) LastPut() (sha, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.LastPutSHA, h.LastMessage
}

// Stats returns the request counters.
func (h *FakeHost) Stats() (rawGets, metaGets, puts int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.RawGets, h.MetaGets, h.Puts
}

func (h *FakeHost) setLocked(content []byte) {
	h.content = append([]byte(nil), content...)
	h.sha = checksum.Sum(content)[:40]
	h.exists = true
}

func (h *FakeHost) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "token "+h.Token
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

func (h *FakeHost) raw(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.RawGets++
	if h.FailRaw {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	if !h.exists {
		http.Error(w, "404: Not Found", http.StatusNotFound)
		return
	}
	_, _ = w.Write(h.content)
}

func (h *FakeHost) meta(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	delay := h.Delay
	h.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.MetaGets++
	if !h.authorized(r) {
		writeMessage(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	if !h.exists {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"sha": h.sha, "size": len(h.content)})

	if h.RaceAfterMetadata {
		h.setLocked(append(h.content, ' '))
	}
}

func (h *FakeHost) put(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Puts++
	if !h.authorized(r) {
		writeMessage(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	var body struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Problems parsing JSON")
		return
	}
	h.LastMessage = body.Message
	h.LastPutSHA = body.SHA

	if h.FailPuts > 0 {
		h.FailPuts--
		writeMessage(w, http.StatusConflict, "data.json does not match "+body.SHA)
		return
	}

	switch {
	case h.exists && body.SHA == "":
		writeMessage(w, http.StatusUnprocessableEntity, `Invalid request. "sha" wasn't supplied.`)
		return
	case h.exists && body.SHA != h.sha:
		writeMessage(w, http.StatusConflict, "data.json does not match "+body.SHA)
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "content is not valid Base64")
		return
	}
	created := !h.exists
	h.setLocked(decoded)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"content": map[string]string{"sha": h.sha}})
}
