package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"CredBuddy/internal/explain"
	"CredBuddy/internal/model"
	"CredBuddy/internal/service"
	"CredBuddy/internal/store"
)

const maxBodyBytes = 1 << 20

type entryRequest struct {
	Date        string           `json:"date"`
	Revenue     *decimal.Decimal `json:"revenue"`
	Expense     *decimal.Decimal `json:"expense"`
	ExpenseNote string           `json:"expense_note"`
}

type entryResponse struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Date         string `json:"date"`
	Revenue      string `json:"revenue"`
	Expense      string `json:"expense"`
	RevenueCents int64  `json:"revenue_cents"`
	ExpenseCents int64  `json:"expense_cents"`
	ExpenseNote  string `json:"expense_note,omitempty"`
}

type cashRequest struct {
	AsOfDate      string           `json:"as_of_date"`
	CashAvailable *decimal.Decimal `json:"cash_available"`
}

type cashResponse struct {
	ID                 int64  `json:"id"`
	UserID             int64  `json:"user_id"`
	AsOfDate           string `json:"as_of_date"`
	CashAvailable      string `json:"cash_available"`
	CashAvailableCents int64  `json:"cash_available_cents"`
}

type scoreResponse struct {
	model.ScoreSnapshot
	Audience     explain.Audience           `json:"audience"`
	Language     explain.Language           `json:"language"`
	Explanation  string                     `json:"explanation"`
	Summary      explain.Summary            `json:"summary"`
	Drivers      explain.Drivers            `json:"drivers"`
	Improvements []string                   `json:"improvements"`
	Lender       *explain.LenderExplanation `json:"lender,omitempty"`
	Polished     bool                       `json:"polished"`
	UsedFallback bool                       `json:"used_fallback"`
}

type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func toEntryResponse(e *model.DailyEntry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		UserID:       e.UserID,
		Date:         e.Day(),
		Revenue:      fromCents(e.RevenueCents),
		Expense:      fromCents(e.ExpenseCents),
		RevenueCents: e.RevenueCents,
		ExpenseCents: e.ExpenseCents,
		ExpenseNote:  e.ExpenseNote,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"uptime_s": int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleSubmitEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if !s.decode(w, r, &req) {
		return
	}

	fields := map[string]string{}
	var revenue, expense int64
	if req.Revenue == nil {
		fields["revenue"] = "required"
	} else if c, err := toCents(*req.Revenue); err != nil {
		fields["revenue"] = err.Error()
	} else {
		revenue = c
	}
	if req.Expense != nil {
		if c, err := toCents(*req.Expense); err != nil {
			fields["expense"] = err.Error()
		} else {
			expense = c
		}
	}
	if len(fields) > 0 {
		s.writeError(w, r, &service.ValidationError{Fields: fields})
		return
	}

	e, err := s.svc.SubmitEntry(r.Context(), service.EntryInput{
		UserID:       userID,
		Date:         req.Date,
		RevenueCents: revenue,
		ExpenseCents: expense,
		ExpenseNote:  req.ExpenseNote,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toEntryResponse(e))
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	days, ok := s.intQuery(w, r, "days")
	if !ok {
		return
	}
	entries, err := s.svc.Entries(r.Context(), userID, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryResponse(&entries[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCashEstimate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req cashRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.CashAvailable == nil {
		s.writeError(w, r, &service.ValidationError{Fields: map[string]string{"cash_available": "required"}})
		return
	}
	cents, err := toCents(*req.CashAvailable)
	if err != nil {
		s.writeError(w, r, &service.ValidationError{Fields: map[string]string{"cash_available": err.Error()}})
		return
	}
	c, err := s.svc.SubmitCashEstimate(r.Context(), service.CashInput{
		UserID:             userID,
		AsOfDate:           req.AsOfDate,
		CashAvailableCents: cents,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cashResponse{
		ID:                 c.ID,
		UserID:             c.UserID,
		AsOfDate:           c.AsOfDate.Format(model.DateLayout),
		CashAvailable:      fromCents(c.CashAvailableCents),
		CashAvailableCents: c.CashAvailableCents,
	})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	scored, err := s.svc.Recompute(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, scored)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	polish := false
	if v := q.Get("polish"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, &service.ValidationError{Fields: map[string]string{"polish": "boolean"}})
			return
		}
		polish = b
	}

	ex, err := s.svc.Explain(r.Context(), userID, service.ExplainOptions{
		Audience:     explain.Audience(q.Get("audience")),
		Language:     explain.Language(q.Get("lang")),
		Polish:       polish,
		BusinessType: q.Get("business_type"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := scoreResponse{
		ScoreSnapshot: ex.Snapshot,
		Audience:      ex.Audience,
		Language:      ex.Breakdown.Language,
		Explanation:   ex.Text,
		Summary:       ex.Breakdown.Summary,
		Drivers:       ex.Breakdown.Drivers,
		Improvements:  ex.Breakdown.Improvements,
		Polished:      ex.Narrative.Polished,
		UsedFallback:  ex.Narrative.UsedFallback,
	}
	if ex.Audience == explain.Lender {
		resp.Lender = &ex.Lender
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	limit, ok := s.intQuery(w, r, "limit")
	if !ok {
		return
	}
	history, err := s.svc.History(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []model.ScoreSnapshot{}
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, r, &service.ValidationError{Fields: map[string]string{"user_id": "gt"}})
		return 0, false
	}
	return id, true
}

func (s *Server) intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		s.writeError(w, r, &service.ValidationError{Fields: map[string]string{name: "number"}})
		return 0, false
	}
	return n, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "malformed request body",
			RequestID: requestID(r),
		})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: requestID(r)}
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		resp.Error = service.ErrInvalidInput.Error()
		resp.Fields = ve.Fields
		s.writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, service.ErrInvalidInput):
		s.writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, store.ErrNotFound):
		resp.Error = "not found"
		s.writeJSON(w, http.StatusNotFound, resp)
	default:
		s.log.WithError(err).WithFields(logrus.Fields{
			"request_id": resp.RequestID,
			"path":       r.URL.Path,
		}).Error("request failed")
		resp.Error = "internal error"
		s.writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("encode response")
	}
}
