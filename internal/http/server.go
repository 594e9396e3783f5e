// Package http serves the local web UI on top of the entity store.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"scontrino/internal/imagecache"
	"scontrino/internal/log"
	"scontrino/internal/session"
	"scontrino/internal/store"
	"scontrino/internal/upload"
	appweb "scontrino/web"
)

type Server struct {
	http.Server
	templates *template.Template
	logger    *log.Logger

	session  *session.Session
	store    *store.Store
	uploader *upload.Uploader
	images   *imagecache.Cache

	notices *noticeBoard
}

// noticeBoard collects user-facing notices until the next page render
// drains them. It is the UI's toast analog and implements
// upload.Notifier.
type noticeBoard struct {
	mu   sync.Mutex
	msgs []string
}

func (n *noticeBoard) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *noticeBoard) drain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.msgs
	n.msgs = nil
	return out
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. The server owns its uploader so upload notices land on
// the in-page notice board.
func NewServer(addr string, ses *session.Session, images *imagecache.Cache, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger:  logger.WithComponent(log.ComponentHTTP),
		session: ses,
		store:   ses.Store(),
		images:  images,
		notices: &noticeBoard{},
	}
	s.uploader = upload.New(ses.Client(), ses.Store(), logger, s.notices)

	t, err := template.New("").Funcs(template.FuncMap{
		"money": formatAmount,
		"when":  formatTimestamp,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Error("failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("GET /{$}", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("GET /transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("GET /report", s.withMiddleware(s.handleReport))
	mux.HandleFunc("POST /upload", s.withMiddleware(s.handleUpload))
	mux.HandleFunc("POST /receipts/more", s.withMiddleware(s.handleMoreReceipts))
	mux.HandleFunc("POST /receipts/delete", s.withMiddleware(s.handleDeleteReceipt))
	mux.HandleFunc("POST /transactions/more", s.withMiddleware(s.handleMoreTransactions))
	mux.HandleFunc("POST /transactions/save", s.withMiddleware(s.handleSaveTransaction))
	mux.HandleFunc("POST /transactions/delete", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("POST /vendors/merge", s.withMiddleware(s.handleMergeVendors))
	mux.HandleFunc("POST /vendors/rename", s.withMiddleware(s.handleRenameVendor))
	mux.HandleFunc("GET /receipts/{id}/image", s.withMiddleware(s.handleReceiptImage))

	return s
}

// Notices exposes the board so other components can surface messages.
func (s *Server) Notices() upload.Notifier {
	return s.notices
}

// withMiddleware adds security headers and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.Info("request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports readiness once the initial backend load settled.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	switch s.session.Status() {
	case session.StatusSucceeded:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	case session.StatusFailed:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("initial load failed"))
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	}
}

// renderLoading shows a refresh-on-interval placeholder while the
// initial load is still pending.
func (s *Server) renderLoading(w http.ResponseWriter) bool {
	if s.session.Status() != session.StatusPending {
		return false
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "loading.html", nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
	return true
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template execution failed",
			"template", name,
			log.FieldError, err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Shutdown delegates to the embedded server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}

func formatAmount(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func formatTimestamp(ts float64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(int64(ts), 0).Format("2006-01-02 15:04")
}
