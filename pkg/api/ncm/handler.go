// Package ncm serves NCM reference lookups (II/IPI rates, statistical unit).
package ncm

import (
	"encoding/json"
	"net/http"

	corencm "custobrasil/pkg/core/ncm"
	"custobrasil/pkg/core/store"
)

var repo *store.NCMRepo

// InitHandler wires the reference repository used by HandleLookup.
func InitHandler(r *store.NCMRepo) {
	repo = r
}

type LookupResponse struct {
	Found bool           `json:"found"`
	Entry *corencm.Entry `json:"entry,omitempty"`
}

// HandleLookup answers GET /api/ncm/lookup?code=8504.40.90 (dotted or
// 8-digit form).
func HandleLookup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if repo == nil {
		http.Error(w, "ncm reference store not configured", http.StatusServiceUnavailable)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}

	entry, err := repo.Lookup(r.Context(), code)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LookupResponse{Found: false})
		return
	}

	resp := LookupResponse{Found: true, Entry: &entry}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
