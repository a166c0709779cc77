package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mustfahassan/pd-calculator/internal/store"
)

// CalculationsHandler exposes the calculation log.
type CalculationsHandler struct {
	store *store.Store
}

// NewCalculationsHandler creates a new CalculationsHandler with the given store.
func NewCalculationsHandler(s *store.Store) *CalculationsHandler {
	return &CalculationsHandler{store: s}
}

type listCalculationsResponse struct {
	Calculations []store.Calculation `json:"calculations"`
}

// ServeHTTP routes GET /api/calculations[?limit=n] and GET /api/calculations/{id}.
func (h *CalculationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/calculations")
	id = strings.Trim(id, "/")
	if id != "" {
		h.get(w, id)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	calcs, err := h.store.Calculations().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations")
		return
	}

	writeJSON(w, http.StatusOK, listCalculationsResponse{Calculations: calcs})
}

func (h *CalculationsHandler) get(w http.ResponseWriter, id string) {
	calc, err := h.store.Calculations().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calculation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get calculation")
		return
	}
	writeJSON(w, http.StatusOK, calc)
}
