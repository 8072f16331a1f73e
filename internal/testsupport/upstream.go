package testsupport

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

const (
	// RestaurantsPath is the upstream endpoint listing restaurants for a slot.
	RestaurantsPath = "/employees/api/v3/menu_categories"
	// MenuItemsPath is the upstream endpoint listing a restaurant's menu items.
	MenuItemsPath = "/employees/api/v4/menu_items"
	// MenuFilterParam carries the restaurant id on menu requests.
	MenuFilterParam = "q[menu_category_id_in_id_array]"
)

// RecordedRequest is one request observed by FakeUpstream.
type RecordedRequest struct {
	Path       string
	Query      url.Values
	Authorized bool
}

// FakeUpstream serves canned restaurant and menu payloads over httptest.
type FakeUpstream struct {
	server   *httptest.Server
	login    string
	password string

	mu              sync.Mutex
	restaurants     map[string]string
	menus           map[string]string
	failRestaurants map[string]int
	failMenus       map[string]int
	requests        []RecordedRequest
}

// NewFakeUpstream starts a fake API that requires the given basic auth pair.
func NewFakeUpstream(t testing.TB, login, password string) *FakeUpstream {
	t.Helper()

	f := &FakeUpstream{
		login:           login,
		password:        password,
		restaurants:     make(map[string]string),
		menus:           make(map[string]string),
		failRestaurants: make(map[string]int),
		failMenus:       make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake API.
func (f *FakeUpstream) URL() string {
	return f.server.URL
}

// SetRestaurants sets the raw JSON body returned for a slot (HH:MM).
func (f *FakeUpstream) SetRestaurants(slot, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restaurants[slot] = body
}

// SetMenu sets the raw JSON body returned for a restaurant id.
func (f *FakeUpstream) SetMenu(restaurantID, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menus[restaurantID] = body
}

// FailRestaurants makes the restaurant endpoint answer status for slot.
func (f *FakeUpstream) FailRestaurants(slot string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRestaurants[slot] = status
}

// FailMenu makes the menu endpoint answer status for restaurantID.
func (f *FakeUpstream) FailMenu(restaurantID string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMenus[restaurantID] = status
}

// Requests returns a copy of the requests observed so far.
func (f *FakeUpstream) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsTo returns the observed requests for one path.
func (f *FakeUpstream) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range f.Requests() {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func (f *FakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	login, password, ok := r.BasicAuth()
	authorized := ok && login == f.login && password == f.password

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{Path: r.URL.Path, Query: r.URL.Query(), Authorized: authorized})
	f.mu.Unlock()

	if !authorized {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var (
		body   string
		status int
	)
	f.mu.Lock()
	switch r.URL.Path {
	case RestaurantsPath:
		slot := r.URL.Query().Get("hour")
		body, status = f.restaurants[slot], f.failRestaurants[slot]
		if body == "" {
			body = "[]"
		}
	case MenuItemsPath:
		id := r.URL.Query().Get(MenuFilterParam)
		body, status = f.menus[id], f.failMenus[id]
		if body == "" {
			body = `{"menu_items":[]}`
		}
	default:
		status = http.StatusNotFound
		body = `{"error":"not found"}`
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"upstream failure"}`))
		return
	}
	_, _ = w.Write([]byte(body))
}
