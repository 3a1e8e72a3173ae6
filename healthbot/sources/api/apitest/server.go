// Package apitest runs an in-memory stand-in for the health assistant backend
// so client code can be exercised end to end.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"healthbot/healthbot/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type user struct {
	Username string
	Email    string
	Password string
}

type session struct {
	seq       int
	ID        string
	Owner     string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []types.ChatMessage
}

type document struct {
	ID         string
	Owner      string
	Filename   string
	Chunks     int
	UploadedAt time.Time
}

type failure struct {
	status int
	detail string
}

// Server is safe for concurrent use by handlers and the test goroutine.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu        sync.Mutex
	users     map[string]*user
	sessions  map[string]*session
	documents map[string]*document
	profiles  map[string]*types.Profile
	hits      map[string]int
	failures  map[string][]failure
	hooks     map[string]func(*http.Request)
	seq       int

	// Reply produces the assistant answer; defaults to an echo.
	Reply func(message string) string
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	s := &Server{
		secret:    []byte("apitest-secret"),
		users:     map[string]*user{},
		sessions:  map[string]*session{},
		documents: map[string]*document{},
		profiles:  map[string]*types.Profile{},
		hits:      map[string]int{},
		failures:  map[string][]failure{},
		hooks:     map[string]func(*http.Request){},
		Reply:     func(m string) string { return "echo: " + m },
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	s.handle(r, http.MethodGet, "", "/health", s.health)

	r.Route("/api/auth", func(ar chi.Router) {
		s.handle(ar, http.MethodPost, "/api/auth", "/signup", s.signUp)
		s.handle(ar, http.MethodPost, "/api/auth", "/signin", s.signIn)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(s.authMiddleware)
		s.handle(gr, http.MethodGet, "", "/api/chat/sessions", s.listSessions)
		s.handle(gr, http.MethodGet, "", "/api/chat/session/{id}", s.getSession)
		s.handle(gr, http.MethodDelete, "", "/api/chat/session/{id}", s.deleteSession)
		s.handle(gr, http.MethodPost, "", "/api/chat/message", s.sendMessage)

		s.handle(gr, http.MethodGet, "", "/api/pdf/documents", s.listDocuments)
		s.handle(gr, http.MethodPost, "", "/api/pdf/upload", s.upload)
		s.handle(gr, http.MethodDelete, "", "/api/pdf/document/{id}", s.deleteDocument)

		s.handle(gr, http.MethodGet, "", "/api/profile", s.getProfile)
		s.handle(gr, http.MethodPost, "", "/api/profile/basic-info", s.saveBasicInfo)
		s.handle(gr, http.MethodPost, "", "/api/profile/medical-history", s.saveMedicalHistory)
		s.handle(gr, http.MethodPost, "", "/api/profile/allergies", s.saveAllergies)
		s.handle(gr, http.MethodPost, "", "/api/profile/lifestyle", s.saveLifestyle)
		s.handle(gr, http.MethodPost, "", "/api/profile/medications", s.addMedication)
		s.handle(gr, http.MethodDelete, "", "/api/profile/medications/{index}", s.deleteMedication)
	})
	return r
}

// handle registers h and records hits under "METHOD /full/pattern".
func (s *Server) handle(r chi.Router, method, prefix, pattern string, h func(*http.Request) (any, int, error)) {
	key := method + " " + prefix + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.hits[key]++
		hook := s.hooks[key]
		var fail *failure
		if queued := s.failures[key]; len(queued) > 0 {
			fail = &queued[0]
			s.failures[key] = queued[1:]
		}
		s.mu.Unlock()

		if hook != nil {
			hook(req)
		}
		if fail != nil {
			writeDetail(w, fail.status, fail.detail)
			return
		}
		handleJSON(h)(w, req)
	}))
}

// httpError carries the status and detail a handler wants to answer with.
type httpError struct {
	detail string
}

func (e httpError) Error() string { return e.detail }

func detail(msg string) error { return httpError{detail: msg} }

func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			writeDetail(w, status, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(res)
	}
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

// Hits counts requests for a route, e.g. Hits("GET", "/api/chat/sessions").
func (s *Server) Hits(method, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+pattern]
}

// TotalHits counts every request the server has seen.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

// FailNext makes the next request to the route answer status with detail.
func (s *Server) FailNext(method, pattern string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + pattern
	s.failures[key] = append(s.failures[key], failure{status: status, detail: msg})
}

// OnRequest runs fn before the route is served; it may block to hold a request in flight.
func (s *Server) OnRequest(method, pattern string, fn func(*http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[method+" "+pattern] = fn
}

// AddUser registers an account directly and returns a valid token for it.
func (s *Server) AddUser(username, email, password string) string {
	s.mu.Lock()
	s.users[email] = &user{Username: username, Email: email, Password: password}
	s.mu.Unlock()
	return s.IssueToken(email, time.Hour)
}

func (s *Server) HasUser(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[email]
	return ok
}

// AddSession seeds a conversation and returns its id.
func (s *Server) AddSession(email, title string, messages ...types.ChatMessage) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	id := s.nextID("S")
	s.sessions[id] = &session{seq: s.seq, ID: id, Owner: email, Title: title, CreatedAt: now, UpdatedAt: now, Messages: messages}
	return id
}

func (s *Server) SessionIDs(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, sess := range s.sortedSessions(email) {
		ids = append(ids, sess.ID)
	}
	return ids
}

// MessageCount reports how many messages session id holds, or -1 if it does
// not exist.
func (s *Server) MessageCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return -1
	}
	return len(sess.Messages)
}

// AddDocument seeds an uploaded document and returns its id.
func (s *Server) AddDocument(email, filename string, chunks int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("D")
	s.documents[id] = &document{ID: id, Owner: email, Filename: filename, Chunks: chunks, UploadedAt: time.Now().UTC()}
	return id
}

// SetProfile replaces the stored profile of email.
func (s *Server) SetProfile(email string, p types.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	cp.Medications = append([]types.Medication(nil), p.Medications...)
	s.profiles[email] = &cp
}

func (s *Server) Profile(email string) types.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.profiles[email]; p != nil {
		cp := *p
		cp.Medications = append([]types.Medication(nil), p.Medications...)
		return cp
	}
	return types.Profile{}
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return prefix + strconv.Itoa(s.seq)
}

func (s *Server) sortedSessions(email string) []*session {
	var out []*session
	for _, sess := range s.sessions {
		if sess.Owner == email {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].seq > out[j].seq
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
