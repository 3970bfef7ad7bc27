package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Purplemerit/linkshortner-sub001/internal/clicks"
	"github.com/Purplemerit/linkshortner-sub001/internal/database"
	"github.com/Purplemerit/linkshortner-sub001/internal/resolver"
)

type Server struct {
	port      string
	baseURL   string
	resolver  *resolver.Resolver
	recorder  *clicks.Recorder
	shortener *Shortener
	analytics *database.Analytics
	db        *database.Database
}

func NewServer(port, baseURL string, res *resolver.Resolver, rec *clicks.Recorder, shortener *Shortener, analytics *database.Analytics, db *database.Database) *Server {
	return &Server{
		port:      port,
		baseURL:   baseURL,
		resolver:  res,
		recorder:  rec,
		shortener: shortener,
		analytics: analytics,
		db:        db,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlerRoot)
	mux.HandleFunc("GET /healthz", s.handlerHealth)
	mux.HandleFunc("GET /protected/{code}", s.handlerPasswordForm)
	mux.HandleFunc("POST /protected/{code}", s.handlerPasswordSubmit)
	mux.HandleFunc("POST /api/links", s.handlerCreateLink)
	mux.HandleFunc("GET /api/links/{code}", s.handlerGetLink)
	mux.HandleFunc("PATCH /api/links/{code}", s.handlerUpdateLink)
	mux.HandleFunc("DELETE /api/links/{code}", s.handlerDeleteLink)
	mux.HandleFunc("GET /api/links/{code}/stats", s.handlerLinkStats)
	mux.HandleFunc("GET /api/links/{code}/qr", s.handlerLinkQR)
	mux.HandleFunc("GET /{code}", s.handlerRedirect)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.routes(),
	}
	errChan := make(chan error, 1)
	go func() { errChan <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handlerRedirect is the hot path: resolve the code, render the outcome,
// and for a pass-through fire the recorder without waiting on it.
func (s *Server) handlerRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	outcome := s.resolver.Resolve(r.Context(), code)
	s.renderOutcome(w, r, outcome)
}

// renderOutcome maps a resolved Outcome to the HTTP response. Only the
// PassThrough branch touches the recorder.
func (s *Server) renderOutcome(w http.ResponseWriter, r *http.Request, outcome resolver.Outcome) {
	switch outcome.Kind {
	case resolver.MissingCode:
		respondError(w, http.StatusBadRequest, "missing short code")
	case resolver.NotFound:
		http.Redirect(w, r, "/", http.StatusFound)
	case resolver.Disabled:
		respondError(w, http.StatusGone, "link is disabled")
	case resolver.Expired:
		respondError(w, http.StatusGone, "link has expired")
	case resolver.PasswordGated:
		http.Redirect(w, r, "/protected/"+outcome.Code, http.StatusFound)
	case resolver.PassThrough:
		link := outcome.Link
		rc := clicks.FromRequest(r)
		go s.recorder.Record(link, rc)
		http.Redirect(w, r, outcome.Destination, http.StatusFound)
	default:
		respondError(w, http.StatusInternalServerError, "unexpected outcome")
	}
}

const passwordFormPage = `<!doctype html>
<html>
<head><title>Protected link</title></head>
<body>
<form method="POST" action="/protected/%s">
<label>This link is password protected.</label>
<input type="password" name="password" autofocus>
<button type="submit">Open</button>
</form>
</body>
</html>`

func (s *Server) handlerPasswordForm(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, passwordFormPage, code)
}

// handlerPasswordSubmit verifies the password and, on success, treats the
// visit as a pass-through: redirect plus click recording. A visit counts
// as a click only after the password check passes.
func (s *Server) handlerPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	password := r.FormValue("password")
	if password == "" {
		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			password = body.Password
		}
	}

	outcome, err := s.resolver.VerifyPassword(r.Context(), code, password)
	if errors.Is(err, resolver.ErrWrongPassword) {
		respondError(w, http.StatusUnauthorized, "wrong password")
		return
	}
	s.renderOutcome(w, r, outcome)
}

func (s *Server) handlerRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"service": "linkshortner"})
}

func (s *Server) handlerHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
