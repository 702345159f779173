package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/septivank/meter-reading-service/internal/db"
	"github.com/septivank/meter-reading-service/internal/logging"
	"github.com/septivank/meter-reading-service/internal/service"
	"github.com/septivank/meter-reading-service/internal/validator"
)

// ReadingService is the business layer behind the API
type ReadingService interface {
	Upload(ctx context.Context, in validator.UploadData) (*service.UploadResult, error)
	Confirm(ctx context.Context, in validator.ConfirmData) (*db.Reading, error)
	List(ctx context.Context, customerCode, measureType string) ([]db.Reading, error)
}

// Pinger reports database reachability for /healthz
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface
type Options struct {
	MaxBodyBytes    int64
	AllowedOrigins  []string
	StaticDir       string
	StaticURLPrefix string
}

type Server struct {
	svc     ReadingService
	pinger  Pinger
	opts    Options
	logger  *zap.Logger
	mux     *http.ServeMux
	handler http.Handler
}

func New(svc ReadingService, pinger Pinger, opts Options, logger *zap.Logger) *Server {
	if opts.StaticURLPrefix == "" {
		opts.StaticURLPrefix = "/static"
	}
	s := &Server{
		svc:    svc,
		pinger: pinger,
		opts:   opts,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodPatch, http.MethodPost, http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(s.mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := r.Header.Get("X-Request-Id")
	if reqID == "" {
		reqID = newRequestID()
	}
	log := logging.WithRequestID(s.logger, reqID)

	w.Header().Set("X-Request-Id", reqID)
	rr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		if rec := recover(); rec != nil {
			rr.status = http.StatusInternalServerError

			// Headers may already be out; then we can only log.
			if !rr.wroteHeader {
				if strings.HasPrefix(r.URL.Path, "/api") {
					writeAPIError(rr, http.StatusInternalServerError, CodeInternal, unexpectedErrorMessage, linksJSON{})
				} else {
					http.Error(rr, "internal error", http.StatusInternalServerError)
				}
			}

			logging.WithCaller(log, callerIP(r)).Error("panic while handling request",
				zap.Any("panic", rec),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.ByteString("stack", debug.Stack()),
			)
		}

		dur := time.Since(start)
		observeHTTPRequest(r, rr.status, dur)

		if r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
			log.Info("request handled",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rr.status),
				zap.Duration("duration", dur),
			)
		}
	}()

	s.handler.ServeHTTP(rr, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("PATCH /api/confirm", s.handleConfirm)
	s.mux.HandleFunc("GET /api/{customerCode}/list", s.handleList)
	s.mux.HandleFunc("/api/", s.handleAPINotFound)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	if s.opts.StaticDir != "" {
		prefix := strings.TrimRight(s.opts.StaticURLPrefix, "/")
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(s.opts.StaticDir)))
		s.mux.Handle("GET "+prefix+"/", noDirListing(files))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeAPIError(w, http.StatusNotFound, CodeNotFound, "route not found", linksJSON{
		Self: link{Href: r.URL.Path},
		Next: link{Href: "/api/upload"},
		Prev: link{Href: "/api/confirm"},
	})
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerIP prefers the first X-Forwarded-For hop
func callerIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := validator.SanitizeIP(strings.TrimSpace(first)); ip != "" {
			return ip
		}
	}
	return validator.SanitizeIP(r.RemoteAddr)
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b[:])
}
