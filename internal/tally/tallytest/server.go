// Package tallytest provides a scripted stand-in for the Tally HTTP listener.
package tallytest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	ProbeOK  = "<ENVELOPE><HEADER><VERSION>1</VERSION></HEADER><BODY>TallyPrime</BODY></ENVELOPE>"
	Created  = "<ENVELOPE><BODY><DATA><IMPORTRESULT><CREATED>1</CREATED><ALTERED>0</ALTERED></IMPORTRESULT></DATA></BODY></ENVELOPE>"
	Deleted  = "<ENVELOPE><BODY><DATA><IMPORTRESULT><DELETED>1</DELETED></IMPORTRESULT></DATA></BODY></ENVELOPE>"
	NotFound = "<ENVELOPE><BODY><DATA><LINEERROR>Ledger 'Acme Corp' does not exist!</LINEERROR></DATA></BODY></ENVELOPE>"
)

// Handler answers one request body with a status code and response body.
type Handler func(body string) (int, string)

// Server records every envelope it receives.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
}

func NewServer(t testing.TB, handler Handler) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)

		s.mu.Lock()
		s.requests = append(s.requests, body)
		s.mu.Unlock()

		status, reply := handler(body)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(s.Close)
	return s
}

// Requests returns a copy of the received envelopes in arrival order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Last returns the most recent non-probe envelope.
func (s *Server) Last() string {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if !IsProbe(reqs[i]) {
			return reqs[i]
		}
	}
	return ""
}

// IsProbe reports whether body is the connectivity envelope.
func IsProbe(body string) bool {
	return strings.Contains(body, "$$SysName:XML") && !strings.Contains(body, "<TDL>")
}

// Reply answers every request, probes included, with the same response.
func Reply(status int, body string) Handler {
	return func(string) (int, string) { return status, body }
}

// Online answers probes with ProbeOK and every other envelope with status/body.
func Online(status int, body string) Handler {
	return func(req string) (int, string) {
		if IsProbe(req) {
			return http.StatusOK, ProbeOK
		}
		return status, body
	}
}

// ClosedURL returns the address of a listener that has already been shut
// down, so connecting to it is refused.
func ClosedURL(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	return url
}
