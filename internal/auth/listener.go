package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

// Outcome is the result of one authorization redirect. Either Code is set,
// or Err is ErrStateMismatch, a *ProviderError, or a listener failure.
type Outcome struct {
	Code string
	Err  error
}

// CallbackServer captures the provider's redirect on a loopback address. It
// serves exactly one authorization attempt: the first matching request
// produces an Outcome and triggers shutdown.
type CallbackServer struct {
	addr   string
	path   string
	logger *log.Logger

	boundAddr string
}

// NewCallbackServer creates a listener for http://localhost:<port>/callback.
func NewCallbackServer(port int, logger *log.Logger) *CallbackServer {
	return &CallbackServer{
		addr:   fmt.Sprintf("localhost:%d", port),
		path:   "/callback",
		logger: logger,
	}
}

// RedirectURI returns the redirect URI the provider must be configured with.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://%s%s", s.addr, s.path)
}

// Addr returns the address actually bound by Start.
func (s *CallbackServer) Addr() string {
	return s.boundAddr
}

// Start binds the local socket and begins serving in the background. It
// returns only after the bind has succeeded, so the caller may open the
// browser without racing the redirect. A second concurrent attempt on the
// same port fails here rather than queueing.
//
// Exactly one Outcome is delivered on the returned channel. The server shuts
// itself down after responding to the first redirect; the shutdown runs
// asynchronously so the HTTP response is flushed first.
func (s *CallbackServer) Start(expectedState string) (<-chan Outcome, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback listener on %s: %w", s.addr, err)
	}
	s.boundAddr = ln.Addr().String()

	outcomes := make(chan Outcome, 1)
	var once sync.Once
	srv := &http.Server{}

	deliver := func(out Outcome) {
		once.Do(func() {
			outcomes <- out
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					s.logger.Printf("callback server shutdown: %v", err)
				}
			}()
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		switch {
		case query.Get("state") != expectedState:
			respond(w, "Authorization failed: state mismatch.")
			deliver(Outcome{Err: ErrStateMismatch})
		case query.Get("code") != "":
			respond(w, "Authorization successful! You can close this tab.")
			deliver(Outcome{Code: query.Get("code")})
		default:
			reason := query.Get("error")
			if reason == "" {
				reason = "unknown"
			}
			respond(w, "Authorization failed: "+reason)
			deliver(Outcome{Err: &ProviderError{Reason: reason}})
		}
	})
	srv.Handler = mux

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(Outcome{Err: fmt.Errorf("callback server failed: %w", err)})
		}
	}()

	return outcomes, nil
}

// respond writes a minimal HTML page shown in the user's browser. No
// protocol details beyond the short message are exposed.
func respond(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<html><body><h2>%s</h2></body></html>", message)
}
