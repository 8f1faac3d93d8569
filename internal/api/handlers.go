package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/ansfeed/pkg/taxid"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	defaultTop   = 10
)

// Handlers provides the HTTP handlers of the query API.
type Handlers struct {
	queries *Queries
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(queries *Queries, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{queries: queries, logger: logger}
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorBody{Error: "operator not found"})
	case errors.Is(err, errBadRequest):
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

type requestError struct{ msg string }

func (e *requestError) Error() string        { return e.msg }
func (e *requestError) Is(target error) bool { return target == errBadRequest }

// positiveInt reads an optional positive integer query parameter.
func positiveInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest(name + " must be a positive integer")
	}
	return n, nil
}

// Health reports whether the target database is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	db := h.queries.adp.Handle()
	if db == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	if err := db.PingContext(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListOperators serves a page of operators.
func (h *Handlers) ListOperators(w http.ResponseWriter, r *http.Request) {
	page, err := positiveInt(r, "page", 1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := positiveInt(r, "limit", defaultLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit = min(limit, maxLimit)

	include, _ := strconv.ParseBool(r.URL.Query().Get("include_without_expenses"))
	result, err := h.queries.ListOperators(r.Context(), ListParams{
		Page:                   page,
		Limit:                  limit,
		Query:                  strings.TrimSpace(r.URL.Query().Get("q")),
		IncludeWithoutExpenses: include,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// operatorParam resolves the {taxID} path segment to an operator. Formatted
// ids (with dots, slash and dash) are accepted.
func (h *Handlers) operatorParam(r *http.Request) (Operator, error) {
	raw := chi.URLParam(r, "taxID")
	id, ok := taxid.Normalize(raw)
	if !ok {
		return Operator{}, badRequest("invalid tax id " + strconv.Quote(raw))
	}
	return h.queries.GetOperator(r.Context(), id)
}

// GetOperator serves one operator.
func (h *Handlers) GetOperator(w http.ResponseWriter, r *http.Request) {
	op, err := h.operatorParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, op)
}

// OperatorExpenses serves the quarterly expenses of one operator.
func (h *Handlers) OperatorExpenses(w http.ResponseWriter, r *http.Request) {
	op, err := h.operatorParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	expenses, err := h.queries.ListExpenses(r.Context(), op.RegistrationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"operator": op, "expenses": expenses})
}

// Statistics serves the market-wide summary.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	top, err := positiveInt(r, "top", defaultTop)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.queries.Statistics(r.Context(), min(top, maxLimit))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// OperatorStatistics serves the yearly aggregates of one operator.
func (h *Handlers) OperatorStatistics(w http.ResponseWriter, r *http.Request) {
	op, err := h.operatorParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.queries.OperatorStatistics(r.Context(), op.RegistrationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"operator": op, "statistics": stats})
}
