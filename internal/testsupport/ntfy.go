package testsupport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// NtfyMessage is one request captured by FakeNtfy.
type NtfyMessage struct {
	Path          string
	Authorization string
	Title         string
	Tags          string
	Priority      string
	Body          string
}

// FakeNtfy is an httptest-backed ntfy server that records every publish.
type FakeNtfy struct {
	server *httptest.Server

	mu       sync.Mutex
	status   int
	messages []NtfyMessage
}

// NewFakeNtfy starts a server that answers 200 until SetStatus says otherwise.
func NewFakeNtfy(t testing.TB) *FakeNtfy {
	t.Helper()
	f := &FakeNtfy{status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *FakeNtfy) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.messages = append(f.messages, NtfyMessage{
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Title:         r.Header.Get("Title"),
		Tags:          r.Header.Get("Tags"),
		Priority:      r.Header.Get("Priority"),
		Body:          string(body),
	})
	status := f.status
	f.mu.Unlock()
	w.WriteHeader(status)
}

// URL is the server base URL.
func (f *FakeNtfy) URL() string {
	return f.server.URL
}

// SetStatus changes the response status for subsequent publishes.
func (f *FakeNtfy) SetStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Messages returns a copy of the captured publishes.
func (f *FakeNtfy) Messages() []NtfyMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]NtfyMessage(nil), f.messages...)
}
