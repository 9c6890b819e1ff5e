// Package wikitest runs a fake Wikipedia search and pageview API for tests.
package wikitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Request is one request the server received.
type Request struct {
	Kind          string // "search", "pageviews" or "other"
	Path          string
	Query         url.Values
	Article       string // Unescaped title key for pageview requests
	Authorization string
}

// Reply is a canned response served ahead of normal routing.
type Reply struct {
	Status int
	Header http.Header
	Body   string
}

// Server is a scriptable fake of the two Wikipedia endpoints.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	requests    []Request
	queue       []Reply
	search      map[string][]string
	articles    map[string][]int64
	rejectToken bool
}

// New starts a server and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		search:   make(map[string][]string),
		articles: make(map[string][]int64),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/w/api.php", s.handleSearch)
	r.Get("/api/rest_v1/metrics/pageviews/per-article/{project}/{access}/{agent}/{article}/daily/{start}/{end}", s.handlePageviews)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SearchURL is the search endpoint.
func (s *Server) SearchURL() string {
	return s.URL + "/w/api.php"
}

// PageviewsURL is the per-article pageviews base URL.
func (s *Server) PageviewsURL() string {
	return s.URL + "/api/rest_v1/metrics/pageviews/per-article"
}

// AddSearch makes query return titles, best first.
func (s *Server) AddSearch(query string, titles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search[query] = titles
}

// AddArticle registers an article with one daily view count per element.
func (s *Server) AddArticle(titleKey string, daily ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[titleKey] = daily
}

// Enqueue serves replies, in order, to the next requests regardless of route.
func (s *Server) Enqueue(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, replies...)
}

// RejectToken answers every request that carries an Authorization header with 403.
func (s *Server) RejectToken(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectToken = reject
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests of kind were received.
func (s *Server) Count(kind string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{
			Kind:          "other",
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
		}
		switch {
		case r.URL.Path == "/w/api.php":
			req.Kind = "search"
		case strings.HasPrefix(r.URL.Path, "/api/rest_v1/metrics/pageviews/"):
			req.Kind = "pageviews"
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		reject := s.rejectToken && req.Authorization != ""
		var reply *Reply
		if !reject && len(s.queue) > 0 {
			reply = &s.queue[0]
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		if reject {
			http.Error(w, `{"title":"Forbidden"}`, http.StatusForbidden)
			return
		}
		if reply != nil {
			for k, vs := range reply.Header {
				for _, v := range vs {
					w.Header().Add(k, v)
				}
			}
			w.WriteHeader(reply.Status)
			_, _ = w.Write([]byte(reply.Body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("srsearch")

	s.mu.Lock()
	titles := s.search[query]
	s.mu.Unlock()

	type hit struct {
		NS      int    `json:"ns"`
		Title   string `json:"title"`
		PageID  int    `json:"pageid"`
		Snippet string `json:"snippet"`
	}
	hits := make([]hit, 0, len(titles))
	for i, t := range titles {
		hits = append(hits, hit{
			Title:   t,
			PageID:  1000 + i,
			Snippet: fmt.Sprintf(`The <span class="searchmatch">%s</span> &amp; more`, t),
		})
	}

	body := map[string]any{
		"batchcomplete": "",
		"query": map[string]any{
			"searchinfo": map[string]int{"totalhits": len(hits)},
			"search":     hits,
		},
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePageviews(w http.ResponseWriter, r *http.Request) {
	article, err := url.PathUnescape(chi.URLParam(r, "article"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := time.Parse("20060102", chi.URLParam(r, "start"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if n := len(s.requests); n > 0 {
		s.requests[n-1].Article = article
	}
	daily, ok := s.articles[article]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"type":  "https://mediawiki.org/wiki/HyperSwitch/errors/not_found",
			"title": "Not found.",
		})
		return
	}

	type item struct {
		Project   string `json:"project"`
		Article   string `json:"article"`
		Timestamp string `json:"timestamp"`
		Views     int64  `json:"views"`
	}
	items := make([]item, 0, len(daily))
	for i, v := range daily {
		items = append(items, item{
			Project:   "en.wikipedia",
			Article:   article,
			Timestamp: start.AddDate(0, 0, i).Format("2006010200"),
			Views:     v,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
