package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"timetrack/internal/domain"
	"timetrack/internal/usecase"
)

const apiPrefix = "/api/time-tracking"

// HTTPServer returns a configured http.Server exposing the time tracking API.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.log.Info("http server configured", slog.String("addr", addr))
	return srv
}

// Handler returns the routed API with request logging.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := a.ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST "+apiPrefix+"/timer/start", a.withUser(a.handleStartTimer))
	mux.HandleFunc("POST "+apiPrefix+"/timer/stop", a.withUser(a.handleStopTimer))
	mux.HandleFunc("GET "+apiPrefix+"/timer/current", a.withUser(a.handleCurrentTimer))
	mux.HandleFunc("POST "+apiPrefix+"/entries", a.withUser(a.handleCreateEntry))
	mux.HandleFunc("GET "+apiPrefix+"/entries", a.withUser(a.handleListEntries))
	mux.HandleFunc("GET "+apiPrefix+"/entries/{id}", a.withUser(a.handleGetEntry))
	mux.HandleFunc("PUT "+apiPrefix+"/entries/{id}", a.withUser(a.handleUpdateEntry))
	mux.HandleFunc("DELETE "+apiPrefix+"/entries/{id}", a.withUser(a.handleDeleteEntry))
	mux.HandleFunc("GET "+apiPrefix+"/summary", a.withUser(a.handleSummary))
	mux.HandleFunc("GET "+apiPrefix+"/settings", a.withUser(a.handleGetSettings))
	mux.HandleFunc("PUT "+apiPrefix+"/settings", a.withUser(a.handleUpdateSettings))
	mux.HandleFunc("GET "+apiPrefix+"/rates", a.withUser(a.handleListRates))
	mux.HandleFunc("POST "+apiPrefix+"/rates", a.withUser(a.handleCreateRate))
	mux.HandleFunc("POST "+apiPrefix+"/invoices/{invoiceId}/entries", a.withUser(a.handleAttachInvoice))

	return loggingMiddleware(a.log, mux)
}

// caller is the identity forwarded by the gateway.
type caller struct {
	userID string
	role   string
}

type userHandler func(w http.ResponseWriter, r *http.Request, c caller)

// withUser rejects requests without a forwarded user id.
func (a *App) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing X-User-ID"})
			return
		}
		next(w, r, caller{userID: id, role: r.Header.Get("X-User-Role")})
	}
}

func (a *App) handleStartTimer(w http.ResponseWriter, r *http.Request, c caller) {
	var in usecase.StartTimerInput
	if !decodeBody(w, r, &in) {
		return
	}
	e, err := a.timers.StartTimer(r.Context(), c.userID, in)
	a.respond(w, http.StatusCreated, e, err)
}

func (a *App) handleStopTimer(w http.ResponseWriter, r *http.Request, c caller) {
	var in usecase.StopTimerInput
	if !decodeOptionalBody(w, r, &in) {
		return
	}
	e, err := a.timers.StopTimer(r.Context(), c.userID, in)
	a.respond(w, http.StatusOK, e, err)
}

func (a *App) handleCurrentTimer(w http.ResponseWriter, r *http.Request, c caller) {
	e, err := a.timers.GetCurrentTimer(r.Context(), c.userID)
	a.respond(w, http.StatusOK, e, err)
}

func (a *App) handleCreateEntry(w http.ResponseWriter, r *http.Request, c caller) {
	var in usecase.ManualEntryInput
	if !decodeBody(w, r, &in) {
		return
	}
	e, err := a.timers.CreateManualEntry(r.Context(), c.userID, in)
	a.respond(w, http.StatusCreated, e, err)
}

func (a *App) handleListEntries(w http.ResponseWriter, r *http.Request, c caller) {
	q := r.URL.Query()
	lq := usecase.ListQuery{ProjectID: q.Get("projectId"), TaskID: q.Get("taskId")}
	var err error
	if lq.StartDate, err = parseStartParam(q.Get("startDate")); err != nil {
		a.respond(w, 0, nil, err)
		return
	}
	if lq.EndDate, err = parseEndParam(q.Get("endDate")); err != nil {
		a.respond(w, 0, nil, err)
		return
	}
	if v := q.Get("billable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			a.respond(w, 0, nil, fmt.Errorf("%w: billable must be true or false", domain.ErrValidation))
			return
		}
		lq.Billable = &b
	}
	if lq.Page, err = intParam(q.Get("page")); err != nil {
		a.respond(w, 0, nil, err)
		return
	}
	if lq.Limit, err = intParam(q.Get("limit")); err != nil {
		a.respond(w, 0, nil, err)
		return
	}
	page, err := a.timers.ListTimeEntries(r.Context(), c.userID, lq)
	a.respond(w, http.StatusOK, page, err)
}

func (a *App) handleGetEntry(w http.ResponseWriter, r *http.Request, c caller) {
	e, err := a.timers.GetTimeEntry(r.Context(), c.userID, r.PathValue("id"))
	a.respond(w, http.StatusOK, e, err)
}

func (a *App) handleUpdateEntry(w http.ResponseWriter, r *http.Request, c caller) {
	var u domain.EntryUpdate
	if !decodeBody(w, r, &u) {
		return
	}
	e, err := a.timers.UpdateTimeEntry(r.Context(), c.userID, r.PathValue("id"), u)
	a.respond(w, http.StatusOK, e, err)
}

func (a *App) handleDeleteEntry(w http.ResponseWriter, r *http.Request, c caller) {
	if err := a.timers.DeleteTimeEntry(r.Context(), c.userID, r.PathValue("id")); err != nil {
		a.respond(w, 0, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleSummary(w http.ResponseWriter, r *http.Request, c caller) {
	q := r.URL.Query()
	sq := domain.SummaryQuery{ProjectID: q.Get("projectId"), TaskID: q.Get("taskId"), GroupBy: q.Get("groupBy")}
	if sq.GroupBy == "" {
		sq.GroupBy = domain.GroupByDay
	}
	start, err := parseStartParam(q.Get("startDate"))
	if err != nil {
		a.respond(w, 0, nil, err)
		return
	}
	end, err := parseEndParam(q.Get("endDate"))
	if err != nil {
		a.respond(w, 0, nil, err)
		return
	}
	if start != nil {
		sq.StartDate = *start
	}
	if end != nil {
		sq.EndDate = *end
	}
	out, err := a.summary.Summary(r.Context(), c.userID, sq)
	a.respond(w, http.StatusOK, out, err)
}

func (a *App) handleGetSettings(w http.ResponseWriter, r *http.Request, c caller) {
	s, err := a.settings.Get(r.Context(), c.userID)
	a.respond(w, http.StatusOK, s, err)
}

func (a *App) handleUpdateSettings(w http.ResponseWriter, r *http.Request, c caller) {
	var u domain.SettingsUpdate
	if !decodeBody(w, r, &u) {
		return
	}
	s, err := a.settings.Update(r.Context(), c.userID, u)
	a.respond(w, http.StatusOK, s, err)
}

func (a *App) handleListRates(w http.ResponseWriter, r *http.Request, c caller) {
	rates, err := a.rates.List(r.Context(), c.role)
	if rates == nil {
		rates = []domain.BillableRate{}
	}
	a.respond(w, http.StatusOK, rates, err)
}

func (a *App) handleCreateRate(w http.ResponseWriter, r *http.Request, c caller) {
	var in domain.BillableRate
	if !decodeBody(w, r, &in) {
		return
	}
	rate, err := a.rates.Create(r.Context(), c.role, in)
	a.respond(w, http.StatusCreated, rate, err)
}

func (a *App) handleAttachInvoice(w http.ResponseWriter, r *http.Request, c caller) {
	var body struct {
		TimeEntryIDs []string `json:"timeEntryIds"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := a.timers.AttachInvoice(r.Context(), c.role, r.PathValue("invoiceId"), body.TimeEntryIDs); err != nil {
		a.respond(w, 0, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond writes v with status, or maps err to its HTTP status.
func (a *App) respond(w http.ResponseWriter, status int, v any, err error) {
	if err == nil {
		writeJSON(w, status, v)
		return
	}
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		a.log.Error("request failed", slog.String("error", err.Error()))
	}
	body := map[string]any{"error": err.Error()}
	var lfe *domain.LockedFieldsError
	if errors.As(err, &lfe) {
		body["fields"] = lfe.Fields
	}
	writeJSON(w, code, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON request body into dst, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for routes whose payload may be omitted.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// parseStartParam parses a start boundary that may be RFC3339 or YYYY-MM-DD.
// Empty input yields nil.
func parseStartParam(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if d, err := time.Parse("2006-01-02", val); err == nil {
		return &d, nil
	}
	return nil, fmt.Errorf("%w: %q is not RFC3339 or YYYY-MM-DD", domain.ErrValidation, val)
}

// parseEndParam parses an end boundary that may be RFC3339 or YYYY-MM-DD.
// Date-only form is inclusive: it covers the whole day up to its last microsecond.
func parseEndParam(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if d, err := time.Parse("2006-01-02", val); err == nil {
		end := d.AddDate(0, 0, 1).Add(-time.Microsecond)
		return &end, nil
	}
	return nil, fmt.Errorf("%w: %q is not RFC3339 or YYYY-MM-DD", domain.ErrValidation, val)
}

func intParam(val string) (int, error) {
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", domain.ErrValidation, val)
	}
	return n, nil
}
