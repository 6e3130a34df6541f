// Package fx serves BCB PTAX USD/BRL fixings.
package fx

import (
	"encoding/json"
	"net/http"
	"time"

	corefx "custobrasil/pkg/core/fx"
)

var client *corefx.Client

// InitHandler wires the PTAX client used by HandlePTAX.
func InitHandler(c *corefx.Client) {
	client = c
}

type PTAXResponse struct {
	Date string       `json:"date"`
	Q    corefx.Quote `json:"quote"`
}

// HandlePTAX answers GET /api/fx/ptax?date=2026-08-28. Without a date it
// returns the most recent fixing.
func HandlePTAX(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if client == nil {
		client = corefx.NewClient()
	}

	var (
		q   corefx.Quote
		err error
	)
	if ds := r.URL.Query().Get("date"); ds != "" {
		var day time.Time
		day, err = time.Parse("2006-01-02", ds)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		q, err = client.OnDate(r.Context(), day)
	} else {
		q, err = client.Latest(r.Context())
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PTAXResponse{Date: q.At, Q: q})
}
