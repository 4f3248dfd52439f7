package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"calboard/internal/calendar"
	"calboard/internal/config"
	"calboard/internal/ics"
	appLog "calboard/internal/log"
	"calboard/internal/model"
)

// maxImportBytes bounds an uploaded ICS payload.
const maxImportBytes = 4 << 20

// Server exposes the calendar state over a small JSON API. Every intent
// endpoint answers with the fresh snapshot so clients can re-render from a
// single response.
type Server struct {
	cfg   *config.Config
	state *calendar.State
	mux   *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, state *calendar.State) *Server {
	s := &Server{
		cfg:   cfg,
		state: state,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "user", s.cfg.BasicAuth.Username)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)

	s.mux.HandleFunc("POST /api/month/next", s.intent(func(*http.Request) error { s.state.NextMonth(); return nil }))
	s.mux.HandleFunc("POST /api/month/prev", s.intent(func(*http.Request) error { s.state.PrevMonth(); return nil }))
	s.mux.HandleFunc("POST /api/month/today", s.intent(func(*http.Request) error { s.state.Today(); return nil }))

	s.mux.HandleFunc("POST /api/select", s.intent(s.selectDate))
	s.mux.HandleFunc("POST /api/sidebar/close", s.intent(func(*http.Request) error { s.state.CloseSidebar(); return nil }))
	s.mux.HandleFunc("POST /api/search", s.intent(s.search))

	s.mux.HandleFunc("POST /api/dialog/create", s.intent(func(*http.Request) error { s.state.OpenCreateDialog(); return nil }))
	s.mux.HandleFunc("POST /api/dialog/edit", s.intent(s.openEdit))
	s.mux.HandleFunc("PUT /api/dialog/form", s.intent(s.setForm))
	s.mux.HandleFunc("POST /api/dialog/save", s.intent(func(*http.Request) error { return s.state.Save() }))
	s.mux.HandleFunc("POST /api/dialog/close", s.intent(func(*http.Request) error { s.state.CloseEventDialog(); return nil }))

	s.mux.HandleFunc("POST /api/events/delete", s.intent(s.deleteEvent))

	s.mux.HandleFunc("POST /api/categories", s.intent(s.addCategory))
	s.mux.HandleFunc("POST /api/categories/delete", s.intent(s.deleteCategory))
	s.mux.HandleFunc("POST /api/categories/dialog/open", s.intent(func(*http.Request) error { s.state.OpenCategoryDialog(); return nil }))
	s.mux.HandleFunc("POST /api/categories/dialog/close", s.intent(func(*http.Request) error { s.state.CloseCategoryDialog(); return nil }))

	s.mux.HandleFunc("POST /api/confirm", s.intent(func(*http.Request) error { return s.state.Confirm() }))
	s.mux.HandleFunc("POST /api/confirm/cancel", s.intent(func(*http.Request) error { s.state.CancelConfirm(); return nil }))

	s.mux.HandleFunc("GET /api/export.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// badRequest marks errors caused by a malformed request rather than by
// calendar validation.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

// intent adapts a state mutation into a handler. Validation failures map
// to 422 and still carry the snapshot, whose error slot shows the message.
func (s *Server) intent(fn func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(r)

		var br badRequest
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, s.state.Snapshot())
		case errors.As(err, &br):
			writeError(w, http.StatusBadRequest, br.Error())
		case calendar.IsValidation(err):
			writeJSON(w, http.StatusUnprocessableEntity, intentError{Error: err.Error(), State: s.state.Snapshot()})
		case errors.Is(err, calendar.ErrSaveInProgress), errors.Is(err, calendar.ErrNothingToConfirm),
			errors.Is(err, calendar.ErrDialogClosed):
			writeJSON(w, http.StatusConflict, intentError{Error: err.Error(), State: s.state.Snapshot()})
		default:
			appLog.Error("intent failed", err, "path", r.URL.Path)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

type intentError struct {
	Error string            `json:"error"`
	State calendar.Snapshot `json:"state"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest{err: err}
	}
	return nil
}

func (s *Server) selectDate(r *http.Request) error {
	var req struct {
		Date model.Day `json:"date"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}
	if req.Date.IsZero() {
		return badRequest{err: errors.New("date is required")}
	}
	s.state.SelectDate(req.Date)
	return nil
}

func (s *Server) search(r *http.Request) error {
	var req struct {
		Term string `json:"term"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}
	s.state.SetSearchTerm(req.Term)
	return nil
}

func (s *Server) openEdit(r *http.Request) error {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}
	s.state.OpenEditDialog(req.ID)
	return nil
}

func (s *Server) setForm(r *http.Request) error {
	var req model.EventForm
	if err := decode(r, &req); err != nil {
		return err
	}
	s.state.SetForm(req)
	return nil
}

func (s *Server) deleteEvent(r *http.Request) error {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}
	s.state.RequestDeleteEvent(req.ID)
	return nil
}

func (s *Server) addCategory(r *http.Request) error {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}
	_, err := s.state.AddCategory(req.Name, req.Color)
	return err
}

func (s *Server) deleteCategory(r *http.Request) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}
	return s.state.RequestDeleteCategory(req.ID)
}

// handleExport returns every event as an ICS download.
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export("calboard", s.state.Events(), s.state.Categories(), time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=calboard.ics")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

type importResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// handleImport adds the events of an uploaded ICS payload.
//
// POST /api/import?category=work
//   - body:     text/calendar payload
//   - category: category ID for the new events (default: configured default)
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = s.cfg.DefaultCategory
	}

	parsed, err := ics.Parse(ics.Source{ID: "upload", URL: "upload://request"}, body, s.cfg.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ICS payload")
		return
	}

	added, skipped := s.state.Import(Entries(parsed, category))
	appLog.Info("ics import", "added", added, "skipped", skipped, "category", category)
	writeJSON(w, http.StatusOK, importResponse{Added: added, Skipped: skipped})
}

// Entries converts parsed ICS events into state entries in category.
func Entries(events []ics.ImportedEvent, category string) []calendar.Entry {
	out := make([]calendar.Entry, 0, len(events))
	for _, ev := range events {
		out = append(out, calendar.Entry{Date: ev.Day, Form: ev.Form(category)})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
