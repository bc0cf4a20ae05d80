// Package notionmock provides an in-process document service for tests.
//
// It speaks the same wire format as the real API: bearer auth, the
// Notion-Version header, page creation under a known parent, and child
// block appends capped at one hundred blocks per request. Created pages
// are recorded in creation order so tests can assert on structure.
//
// Usage:
//
//	srv := notionmock.New(
//		notionmock.WithToken("secret"),
//		notionmock.WithParentPage(rootID),
//	)
//	defer srv.Close()
//	client := notion.NewClient(srv.URL, "secret", "2022-06-28", time.Minute)
package notionmock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/raido/internal/notion"
)

// PageRecord is one created page together with everything appended to it.
type PageRecord struct {
	ID       string
	ParentID string
	Title    string
	Blocks   []notion.Block
}

// Server wraps an httptest.Server with a document service mock.
type Server struct {
	*httptest.Server

	token   string
	version string // expected Notion-Version value; empty accepts any

	mu      sync.Mutex
	pages   []*PageRecord
	byID    map[string]*PageRecord
	parents map[string]bool // pre-registered pages that exist remotely

	createCalls atomic.Int32
	appendCalls atomic.Int32

	failStatus   int    // if non-zero, every request fails with it
	failTitle    string // creating a page with this title fails
	failAppendTo string // appending to the page with this title fails
}

// Option configures a mock server.
type Option func(*Server)

// WithToken sets the bearer token required on every request.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithVersion pins the Notion-Version header value requests must carry.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithParentPage registers a page id that exists remotely, so it can be
// used as a creation parent without having been created through the mock.
func WithParentPage(id string) Option {
	return func(s *Server) { s.parents[id] = true }
}

// WithFailStatus makes every request return the given HTTP status.
func WithFailStatus(status int) Option {
	return func(s *Server) { s.failStatus = status }
}

// WithFailOnTitle makes page creation fail for one specific title.
func WithFailOnTitle(title string) Option {
	return func(s *Server) { s.failTitle = title }
}

// WithFailOnAppendTo makes block appends fail for the page with the
// given title.
func WithFailOnAppendTo(title string) Option {
	return func(s *Server) { s.failAppendTo = title }
}

// New creates and starts a mock document service.
func New(opts ...Option) *Server {
	s := &Server{
		byID:    make(map[string]*PageRecord),
		parents: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.guard)
	r.Post("/v1/pages", s.createPage)
	r.Patch("/v1/blocks/{id}/children", s.appendChildren)

	s.Server = httptest.NewServer(r)
	return s
}

// CreateCalls returns how many page creations were attempted.
func (s *Server) CreateCalls() int { return int(s.createCalls.Load()) }

// AppendCalls returns how many append requests were received.
func (s *Server) AppendCalls() int { return int(s.appendCalls.Load()) }

// Pages returns a snapshot of all created pages in creation order.
func (s *Server) Pages() []PageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PageRecord, len(s.pages))
	for i, p := range s.pages {
		out[i] = *p
		out[i].Blocks = append([]notion.Block(nil), p.Blocks...)
	}
	return out
}

// PageByTitle returns the first page created with the given title.
func (s *Server) PageByTitle(title string) (PageRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.Title == title {
			out := *p
			out.Blocks = append([]notion.Block(nil), p.Blocks...)
			return out, true
		}
	}
	return PageRecord{}, false
}

// guard enforces auth, the version header, and global failure injection
// before any route runs.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.failStatus != 0 {
			writeError(w, s.failStatus, "injected_failure", "mock failure")
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
			return
		}
		version := r.Header.Get("Notion-Version")
		if version == "" || (s.version != "" && version != s.version) {
			writeError(w, http.StatusBadRequest, "missing_version", "Notion-Version header required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) createPage(w http.ResponseWriter, r *http.Request) {
	s.createCalls.Add(1)

	var req notion.CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	title := titleOf(req)
	if title == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "title must not be empty")
		return
	}
	if s.failTitle != "" && title == s.failTitle {
		writeError(w, http.StatusInternalServerError, "injected_failure", "create rejected")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	parent := req.Parent.PageID
	if _, known := s.byID[parent]; !known && !s.parents[parent] {
		writeError(w, http.StatusNotFound, "object_not_found", "parent page does not exist")
		return
	}

	page := &PageRecord{
		ID:       uuid.NewString(),
		ParentID: parent,
		Title:    title,
	}
	s.pages = append(s.pages, page)
	s.byID[page.ID] = page

	writeJSON(w, http.StatusOK, map[string]string{"object": "page", "id": page.ID})
}

func (s *Server) appendChildren(w http.ResponseWriter, r *http.Request) {
	s.appendCalls.Add(1)

	var req notion.AppendChildrenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req.Children) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "children must not be empty")
		return
	}
	if len(req.Children) > 100 {
		writeError(w, http.StatusBadRequest, "validation_error", "children length should be <= 100")
		return
	}
	for _, b := range req.Children {
		if msg := validateBlock(b); msg != "" {
			writeError(w, http.StatusBadRequest, "validation_error", msg)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.byID[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found", "block does not exist")
		return
	}
	if s.failAppendTo != "" && page.Title == s.failAppendTo {
		writeError(w, http.StatusInternalServerError, "injected_failure", "append rejected")
		return
	}
	page.Blocks = append(page.Blocks, req.Children...)

	writeJSON(w, http.StatusOK, map[string]string{"object": "list"})
}

func validateBlock(b notion.Block) string {
	switch b.Type {
	case "paragraph":
		if b.Paragraph == nil {
			return "paragraph block without paragraph body"
		}
		for _, rt := range b.Paragraph.RichText {
			if utf8.RuneCountInString(rt.Text.Content) > notion.MaxTextLen {
				return "text.content length should be <= 2000"
			}
		}
	case "file":
		if b.File == nil || b.File.External.URL == "" {
			return "file block requires an external url"
		}
	default:
		return "unsupported block type " + b.Type
	}
	return ""
}

func titleOf(req notion.CreatePageRequest) string {
	var b strings.Builder
	for _, rt := range req.Properties.Title.Title {
		b.WriteString(rt.Text.Content)
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Object: "error", Status: status, Code: code, Message: message})
}
