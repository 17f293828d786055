package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/evsmart/core/decisionlog"
	"github.com/kilianp07/evsmart/core/model"
)

// ScheduleResponse is the body of GET /api/schedule.
type ScheduleResponse struct {
	State         model.DecisionState    `json:"state"`
	Schedule      model.ChargingSchedule `json:"schedule"`
	Summary       model.Summary          `json:"summary"`
	ChargingHours []bool                 `json:"charging_hours"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func healthHandler(src StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := src.ValidateInputs(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func statusHandler(src StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, src.Status())
	}
}

func scheduleHandler(src StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := src.Status()
		writeJSON(w, http.StatusOK, ScheduleResponse{
			State:         st.State,
			Schedule:      st.Schedule,
			Summary:       st.Summary,
			ChargingHours: st.ChargingHours,
			UpdatedAt:     st.LastEvaluation,
		})
	}
}

// NewDecisionHandler serves the decision history. The start and end query
// parameters are RFC 3339 times; state is "on" or "off".
func NewDecisionHandler(store decisionlog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q decisionlog.Query
		for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := r.URL.Query().Get(name)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+name+": "+err.Error(), http.StatusBadRequest)
				return
			}
			*dst = t
		}
		if s := r.URL.Query().Get("state"); s != "" {
			var st model.DecisionState
			if err := st.UnmarshalText([]byte(s)); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			q.State = &st
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []decisionlog.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	})
}
