// Package webapi provides the web API for the detection service. Every
// detection call is wrapped by the per-client admission queue, so concurrent
// requests from the same client are serialized and bounded.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/wolf-whitz/wzdetect/lib/admission"
	"github.com/wolf-whitz/wzdetect/lib/detect"
)

//go:generate moq --out mocks/detector.go --pkg mocks --with-resets --skip-ensure . Detector
//go:generate moq --out mocks/queue.go --pkg mocks --with-resets --skip-ensure . Queue

// Server is a web API server.
type Server struct {
	Config
}

// Config defines server parameters.
type Config struct {
	Version      string    // version to show in app-info header
	ListenAddr   string    // listen address
	Detector     Detector  // detection engine
	Queue        Queue     // per-client admission control
	AuthPasswd   string    // basic auth password for user "wzdetect", empty disables auth
	DetectionLog io.Writer // json-lines log of flagged detections, nil disables
	Dbg          bool      // debug mode
}

// Detector is a detection engine interface.
type Detector interface {
	Detect(ctx context.Context, req detect.Request) (detect.Result, error)
}

// Queue is a per-client admission control interface.
type Queue interface {
	Acquire(ctx context.Context, clientID string) error
	Release(clientID string)
}

// NewServer creates a new web API server.
func NewServer(config Config) *Server {
	return &Server{Config: config}
}

// Run starts the server and accepts detection requests until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	router := routegroup.New(http.NewServeMux())
	router.Use(rest.Recoverer(lgr.Default()))
	router.Use(rest.AppInfo("wzdetect", "wolf-whitz", s.Version), rest.Ping)
	router.Use(tollbooth.HTTPMiddleware(tollbooth.NewLimiter(50, nil)))
	router.Use(rest.SizeLimit(1024 * 1024)) // 1M max request size

	if s.AuthPasswd != "" {
		log.Printf("[INFO] basic auth enabled for webapi server")
		router.Use(rest.BasicAuthWithUserPasswd("wzdetect", s.AuthPasswd))
	} else {
		log.Printf("[WARN] basic auth disabled, access to webapi is not protected")
	}

	router.HandleFunc("POST /check", s.checkHandler)

	srv := &http.Server{Addr: s.ListenAddr, Handler: router, ReadTimeout: 5 * time.Second, WriteTimeout: 60 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown webapi server: %v", err)
		} else {
			log.Printf("[INFO] webapi server stopped")
		}
	}()

	log.Printf("[INFO] start webapi server on %s", s.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}

// checkHandler handles POST /check requests. The detection call is admitted
// through the per-client fairness queue first: requests over the per-client
// bound are rejected with 429, a client disconnect while queued abandons the
// wait and removes the ticket.
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	req := detect.Request{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}

	client := clientID(r)
	if err := s.Queue.Acquire(r.Context(), client); err != nil {
		if errors.Is(err, admission.ErrCapacityExceeded) {
			w.WriteHeader(http.StatusTooManyRequests)
			rest.RenderJSON(w, rest.JSON{"error": "too many queued requests"})
			log.Printf("[WARN] rejected %s, queue capacity exceeded", client)
			return
		}
		// queued wait abandoned, the client is gone and won't see a response
		log.Printf("[DEBUG] queued wait for %s cancelled: %v", client, err)
		return
	}
	defer s.Queue.Release(client)

	result, err := s.Detector.Detect(r.Context(), req)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "detection failed", "details": err.Error()})
		log.Printf("[WARN] detection failed for %s: %v", client, err)
		return
	}

	s.logDetections(client, result)
	rest.RenderJSON(w, rest.JSON{"input": req.Text, "detection": result})
}

// logDetections writes one json line per flagged token to the detection log.
func (s *Server) logDetections(client string, result detect.Result) {
	if s.DetectionLog == nil {
		return
	}
	for _, tok := range result.Tokens {
		v := result.Verdicts[tok]
		if !v.Flagged {
			continue
		}
		m := struct {
			TimeStamp string `json:"ts"`
			Client    string `json:"client"`
			Token     string `json:"token"`
			Category  string `json:"category"`
			Language  string `json:"language"`
			Level     int    `json:"level"`
		}{
			TimeStamp: time.Now().In(time.Local).Format(time.RFC3339),
			Client:    client,
			Token:     tok,
			Category:  v.Category,
			Language:  v.Language,
			Level:     v.Level,
		}
		line, err := json.Marshal(&m)
		if err != nil {
			log.Printf("[WARN] can't marshal detection log entry, %v", err)
			continue
		}
		if _, err := s.DetectionLog.Write(append(line, '\n')); err != nil {
			log.Printf("[WARN] can't write detection log, %v", err)
		}
	}
}

// clientID picks the client identifier for admission control: X-Real-IP if a
// proxy set it, the remote address host otherwise.
func clientID(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
