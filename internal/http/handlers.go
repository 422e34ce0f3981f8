package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"wealthpillar/internal/core"
	"wealthpillar/internal/log"
	"wealthpillar/internal/services"
	"wealthpillar/internal/storage"
)

const maxBodyBytes = 16 << 10

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")
	ref, err := refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date parameter")
		return
	}

	key := fmt.Sprintf("%d|%s|%s", s.generation.Load(), personID, ref)
	if cached, ok := s.periodCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	res, err := s.service.ResolveActivePeriod(r.Context(), personID, ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := periodResponse{
		PersonID:    personID,
		Window:      res.Window,
		IsException: res.IsException,
	}
	s.periodCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

type createExceptionRequest struct {
	TriggerDate core.Date `json:"triggerDate"`
	Reason      string    `json:"reason"`
}

type exceptionResponse struct {
	ID          string    `json:"id"`
	TriggerDate core.Date `json:"triggerDate"`
	Reason      string    `json:"reason,omitempty"`
}

func (s *Server) handleCreateException(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	var req createExceptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exc, err := s.service.CreateException(r.Context(), personID, req.TriggerDate, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateException):
			writeError(w, http.StatusConflict, "exception already exists for trigger date")
		case errors.Is(err, core.ErrInvalidTriggerDate):
			writeError(w, http.StatusBadRequest, "invalid trigger date")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, exceptionResponse{
		ID:          exc.ID,
		TriggerDate: exc.TriggerDate,
		Reason:      exc.Reason,
	})
}

func (s *Server) handleDeleteException(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")
	excID := r.PathValue("excID")

	if err := s.service.DeleteException(r.Context(), personID, excID); err != nil {
		if errors.Is(err, services.ErrExceptionNotFound) {
			writeError(w, http.StatusNotFound, "exception not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	s.invalidateCaches()
	w.WriteHeader(http.StatusNoContent)
}

type closePeriodRequest struct {
	End core.Date `json:"endDate"`
}

func (s *Server) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	var req closePeriodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// End date defaults to the end of the window active today.
	end := req.End
	if end.Validate() != nil {
		res, err := s.service.ResolveActivePeriod(r.Context(), personID, core.Today())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		end = res.Window.End
	}

	if err := s.service.ClosePeriod(r.Context(), personID, end); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateCaches()
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) handleSpentForBudget(w http.ResponseWriter, r *http.Request) {
	budgetID := r.PathValue("id")
	ref, err := refDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date parameter")
		return
	}

	key := fmt.Sprintf("%d|%s|%s", s.generation.Load(), budgetID, ref)
	if cached, ok := s.spendCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := s.service.SpentForBudget(r.Context(), budgetID, ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := spendResponse{
		BudgetID:       budgetID,
		Window:         result.Window,
		SpentCents:     result.Spent.Cents,
		BudgetCents:    result.Budget.Cents,
		RemainingCents: result.Remaining().Cents,
		Spent:          result.Spent.String(),
	}
	s.spendCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	fields := log.NewFields().
		WithComponent(log.ComponentHTTP).
		WithError(err)
	slog.ErrorContext(r.Context(), "Request failed",
		append(fields.ToSlice(),
			log.FieldPath, r.URL.Path,
			log.FieldMethod, r.Method)...)
	writeError(w, http.StatusInternalServerError, "internal error")
}
