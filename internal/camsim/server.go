// Package camsim simulates the camera server's HTTP contract so the harness
// can be exercised without hardware.
package camsim

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// Options tunes the simulator's behaviour under load.
type Options struct {
	// CaptureSlots bounds concurrent captures; extra captures get 429.
	// Zero means unlimited.
	CaptureSlots int
	// CaptureDelay is how long a capture holds its slot.
	CaptureDelay time.Duration
	// KillStreamOnFullCapture stops the stream after every full-resolution
	// capture, reproducing a pipeline that cannot restart the preview.
	KillStreamOnFullCapture bool
}

// StreamConfig is the body of GET and POST /stream/config.
type StreamConfig struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	FPS     int `json:"fps"`
	Quality int `json:"quality"`
}

type fault struct {
	remaining int
	status    int
	delay     time.Duration
}

// Server is a thread-safe in-memory camera server.
type Server struct {
	router   *mux.Router
	opts     Options
	started  time.Time
	photo    []byte
	captures atomic.Int32

	mu           sync.Mutex
	streaming    bool
	config       StreamConfig
	healthStatus int
	delays       map[string]time.Duration
	faults       map[string][]*fault
	hits         map[string]int64
}

// NewServer creates a simulator with the stream stopped and a 720p config.
func NewServer(opts Options) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		opts:         opts,
		started:      time.Now(),
		photo:        encodePhoto(),
		config:       StreamConfig{Width: 1280, Height: 720, FPS: 30, Quality: 80},
		healthStatus: http.StatusOK,
		delays:       make(map[string]time.Duration),
		faults:       make(map[string][]*fault),
		hits:         make(map[string]int64),
	}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerHandlers() {
	s.router.Use(s.inject)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/stream/config", s.handleGetConfig).Methods(http.MethodGet)
	s.router.HandleFunc("/stream/config", s.handleSetConfig).Methods(http.MethodPost)
	s.router.HandleFunc("/stream/start", s.handleStreamToggle(true)).Methods(http.MethodPost)
	s.router.HandleFunc("/stream/stop", s.handleStreamToggle(false)).Methods(http.MethodPost)
	s.router.HandleFunc("/photo/quick", s.handleCapture(false)).Methods(http.MethodPost)
	s.router.HandleFunc("/photo", s.handleCapture(true)).Methods(http.MethodPost)
}

// SetHealthStatus makes /health answer with code.
func (s *Server) SetHealthStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthStatus = code
}

// SetDelay adds latency to every request on path. Zero removes it.
func (s *Server) SetDelay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d <= 0 {
		delete(s.delays, path)
		return
	}
	s.delays[path] = d
}

// FailNext makes the next n requests on path answer with status instead of
// reaching the handler.
func (s *Server) FailNext(path string, n, status int) {
	s.addFault(path, &fault{remaining: n, status: status})
}

// StallNext holds the next n requests on path for d before handling them.
func (s *Server) StallNext(path string, n int, d time.Duration) {
	s.addFault(path, &fault{remaining: n, delay: d})
}

func (s *Server) addFault(path string, f *fault) {
	if f.remaining <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = append(s.faults[path], f)
}

// SetStreaming forces the stream state.
func (s *Server) SetStreaming(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = on
}

// Streaming reports the current stream state.
func (s *Server) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Config returns the current stream config.
func (s *Server) Config() StreamConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns how many requests the server received.
func (s *Server) TotalHits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, h := range s.hits {
		n += h
	}
	return n
}

// inject counts the request and applies configured delays and faults.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		s.mu.Lock()
		s.hits[path]++
		delay := s.delays[path]
		var f fault
		if queue := s.faults[path]; len(queue) > 0 {
			head := queue[0]
			f = *head
			head.remaining--
			if head.remaining == 0 {
				s.faults[path] = queue[1:]
			}
		}
		s.mu.Unlock()

		if !sleep(r, delay+f.delay) {
			return
		}
		if f.status != 0 {
			http.Error(w, http.StatusText(f.status), f.status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sleep waits for d or until the client goes away.
func sleep(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	code := s.healthStatus
	s.mu.Unlock()

	if code != http.StatusOK {
		writeJSON(w, code, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cfg := s.config
	streaming := s.streaming
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"camera": map[string]interface{}{
			"isStreaming":      streaming,
			"streamResolution": fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
			"targetFps":        cfg.FPS,
			"jpegQuality":      cfg.Quality,
			"focusMode":        "auto",
		},
		"server": map[string]interface{}{
			"uptimeSeconds":  int(time.Since(s.started).Seconds()),
			"activeCaptures": s.captures.Load(),
		},
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Config())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg StreamConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		http.Error(w, "width, height and fps must be positive", http.StatusBadRequest)
		return
	}
	if cfg.Quality == 0 {
		cfg.Quality = s.Config().Quality
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "config": cfg})
}

func (s *Server) handleStreamToggle(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.SetStreaming(on)
		writeJSON(w, http.StatusOK, map[string]bool{"isStreaming": on})
	}
}

func (s *Server) handleCapture(full bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := s.captures.Add(1)
		defer s.captures.Add(-1)
		if s.opts.CaptureSlots > 0 && int(n) > s.opts.CaptureSlots {
			http.Error(w, "camera busy", http.StatusTooManyRequests)
			return
		}

		if !sleep(r, s.opts.CaptureDelay) {
			return
		}
		if full && s.opts.KillStreamOnFullCapture {
			s.SetStreaming(false)
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(s.photo)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// encodePhoto renders a small gradient frame as the capture payload.
func encodePhoto() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
	return buf.Bytes()
}
