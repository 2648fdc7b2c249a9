package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"saldo/internal/core"
	"saldo/internal/engine"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

var validationErrs = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidMonth,
	core.ErrInvalidFrequency,
	core.ErrEmptyDescription,
	core.ErrEndBeforeStart,
	core.ErrMissingRuleID,
	core.ErrDescriptionTooLong,
	core.ErrDayOutOfRange,
}

// writeError maps service errors to status codes: unknown identities are
// 404, a bad kind segment is 400, validation failures are 422, anything
// else is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrRuleNotFound),
		errors.Is(err, ledger.ErrOverrideNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrInvalidKind):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		for _, sentinel := range validationErrs {
			if errors.Is(err, sentinel) {
				writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
				return
			}
		}
		s.logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func kindFromPath(r *http.Request) core.Kind {
	return core.Kind(r.PathValue("kind"))
}

func (s *Server) handleGetDataset(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Dataset())
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var e core.Entry
	if err := readJSON(r, &e); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	stored, err := s.ledger.AddEntry(r.Context(), kindFromPath(r), e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

type updateEntryRequest struct {
	Match   core.Entry `json:"match"`
	Updated core.Entry `json:"updated"`
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	stored, err := s.ledger.UpdateEntry(r.Context(), kindFromPath(r), req.Match, req.Updated)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	var match core.Entry
	if err := readJSON(r, &match); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := s.ledger.RemoveEntry(r.Context(), kindFromPath(r), match); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveRule(w http.ResponseWriter, r *http.Request) {
	var rule core.Rule
	if err := readJSON(r, &rule); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	stored, err := s.ledger.SaveRule(r.Context(), kindFromPath(r), rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var rule core.Rule
	if err := readJSON(r, &rule); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	stored, err := s.ledger.UpdateRule(r.Context(), kindFromPath(r), r.PathValue("id"), rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteRule(r.Context(), kindFromPath(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpsertOverride(w http.ResponseWriter, r *http.Request) {
	var o core.Override
	if err := readJSON(r, &o); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	stored, err := s.ledger.UpsertOverride(r.Context(), o)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonth(r.PathValue("month"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.ledger.DeleteOverride(r.Context(), r.PathValue("id"), month); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type anchorRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleSetAnchor(w http.ResponseWriter, r *http.Request) {
	var req anchorRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := s.ledger.SetAnchor(r.Context(), req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type preferenceRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := s.ledger.SetPreference(r.Context(), r.PathValue("key"), req.Value); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleExpandRecurring(w http.ResponseWriter, r *http.Request) {
	kind := kindFromPath(r)
	if !kind.IsValid() {
		badRequest(w, "invalid kind")
		return
	}
	month, err := core.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	entries := s.ledger.ExpandRecurringForMonth(kind, month)
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type totalsResponse struct {
	Month   string `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	totals := s.ledger.MonthTotals(month)
	writeJSON(w, http.StatusOK, totalsResponse{
		Month:   month.String(),
		Income:  core.FormatAmount(totals.Income),
		Expense: core.FormatAmount(totals.Expense),
		Net:     core.FormatAmount(totals.Net()),
	})
}

type stepResponse struct {
	Month   string `json:"month"`
	From    string `json:"from"`
	To      string `json:"to"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
	Balance string `json:"balance"`
}

type projectionResponse struct {
	Start        string         `json:"start"`
	End          string         `json:"end"`
	CarriedIn    string         `json:"carriedIn"`
	TotalIncome  string         `json:"totalIncome"`
	TotalExpense string         `json:"totalExpense"`
	Balance      string         `json:"balance"`
	Steps        []stepResponse `json:"steps"`
	Simulating   bool           `json:"simulating"`
}

func projectionToResponse(p engine.Projection, start, end core.Date, simulating bool) projectionResponse {
	resp := projectionResponse{
		Start:        start.String(),
		End:          end.String(),
		CarriedIn:    core.FormatAmount(p.CarriedIn),
		TotalIncome:  core.FormatAmount(p.TotalIncome),
		TotalExpense: core.FormatAmount(p.TotalExpense),
		Balance:      core.FormatAmount(p.Balance),
		Steps:        []stepResponse{},
		Simulating:   simulating,
	}
	for _, step := range p.Steps {
		resp.Steps = append(resp.Steps, stepResponse{
			Month:   step.Month.String(),
			From:    step.From.String(),
			To:      step.To.String(),
			Income:  core.FormatAmount(step.Income),
			Expense: core.FormatAmount(step.Expense),
			Net:     core.FormatAmount(step.Net),
			Balance: core.FormatAmount(step.Balance),
		})
	}
	return resp
}

func parseRange(r *http.Request) (core.Date, core.Date, error) {
	start, err := core.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	end, err := core.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	return start, end, nil
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	p := s.ledger.ProjectRange(start, end)
	writeJSON(w, http.StatusOK, projectionToResponse(p, start, end, s.ledger.Simulating()))
}
