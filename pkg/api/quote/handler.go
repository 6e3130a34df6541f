// Package quote exposes the landed-cost engine and the reverse-FOB solver
// over HTTP.
package quote

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"custobrasil/pkg/core/landed"
)

type ComputeRequest struct {
	Config landed.ShipmentConfig `json:"config"`
	Items  []landed.LineItem     `json:"items"`
}

type ComputeResponse struct {
	CalculationID string              `json:"calculation_id"`
	Items         []landed.ItemResult `json:"items"`
	Summary       landed.Summary      `json:"summary"`
}

type ReverseRequest struct {
	Config         landed.ShipmentConfig `json:"config"`
	Items          []landed.LineItem     `json:"items"`
	ItemIndex      int                   `json:"item_index"`
	TargetUnitCost float64               `json:"target_unit_cost_brl"`
	Tolerance      float64               `json:"tolerance,omitempty"`
}

type ReverseResponse struct {
	CalculationID string             `json:"calculation_id"`
	Result        landed.SolveResult `json:"result"`
}

func cors(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// HandleCompute runs the engine on the posted shipment.
func HandleCompute(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}

	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, sum, err := landed.Compute(req.Items, req.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ComputeResponse{
		CalculationID: uuid.NewString(),
		Items:         results,
		Summary:       sum,
	})
}

// HandleReverseFOB solves for the unit price that hits the posted target
// unit cost. Infeasible targets come back with HTTP 200 and a non-converged
// status; only malformed input is an error.
func HandleReverseFOB(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}

	var req ReverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := landed.SolveTargetUnitPrice(req.Items, req.Config, req.ItemIndex, req.TargetUnitCost, landed.SolveOptions{Tolerance: req.Tolerance})
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ReverseResponse{
		CalculationID: uuid.NewString(),
		Result:        res,
	})
}
