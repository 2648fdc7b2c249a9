package http

import (
	"net/http"

	"saldo/internal/core"
)

type simulationStatus struct {
	Simulating bool   `json:"simulating"`
	Revision   uint64 `json:"revision"`
}

func (s *Server) handleSimulationStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, simulationStatus{
		Simulating: s.ledger.Simulating(),
		Revision:   s.ledger.Revision(),
	})
}

type simulationTransition struct {
	Simulating bool `json:"simulating"`
	Changed    bool `json:"changed"`
}

func (s *Server) handleStartSimulation(w http.ResponseWriter, r *http.Request) {
	started := s.ledger.StartSimulation(r.Context())
	writeJSON(w, http.StatusOK, simulationTransition{Simulating: true, Changed: started})
}

func (s *Server) handleAcceptSimulation(w http.ResponseWriter, r *http.Request) {
	wasSimulating := s.ledger.Simulating()
	if err := s.ledger.AcceptSimulation(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, simulationTransition{Simulating: false, Changed: wasSimulating})
}

func (s *Server) handleDiscardSimulation(w http.ResponseWriter, r *http.Request) {
	wasSimulating := s.ledger.Simulating()
	if err := s.ledger.DiscardSimulation(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, simulationTransition{Simulating: false, Changed: wasSimulating})
}

type compareResponse struct {
	Speculative projectionResponse `json:"speculative"`
	Baseline    projectionResponse `json:"baseline"`
	// Difference between the speculative and baseline closing balances.
	BalanceDelta string `json:"balanceDelta"`
}

// handleCompare projects the same range over the speculative dataset and
// the pre-simulation snapshot. It is only available while simulating.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	baseline, ok := s.ledger.BaselineProjection(start, end)
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "no simulation in progress"})
		return
	}
	speculative := s.ledger.ProjectRange(start, end)

	writeJSON(w, http.StatusOK, compareResponse{
		Speculative:  projectionToResponse(speculative, start, end, true),
		Baseline:     projectionToResponse(baseline, start, end, false),
		BalanceDelta: core.FormatAmount(speculative.Balance.Sub(baseline.Balance)),
	})
}
