package api

import (
	"time"

	"stability-dashboard/frontend/internal/predict"
	"stability-dashboard/frontend/internal/store"
)

// RenderResponse carries the rendered regions of one lookup cycle.
type RenderResponse struct {
	LookupID    string `json:"lookup_id"`
	Country     string `json:"country"`
	State       string `json:"state"`
	Cards       int    `json:"cards"`
	ResultsHTML string `json:"results_html"`
	ErrorHTML   string `json:"error_html"`
	Loading     bool   `json:"loading"`
}

// PredictRequest is the body accepted by the manual prediction proxy.
type PredictRequest struct {
	News []predict.Article `json:"news"`
}

// LookupDTO is the API representation for a persisted lookup.
type LookupDTO struct {
	ID         string    `json:"id"`
	Country    string    `json:"country"`
	State      string    `json:"state"`
	Cards      int       `json:"cards"`
	AtRisk     int       `json:"at_risk"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// LookupsResponse is the paginated response for lookup history.
type LookupsResponse struct {
	Items  []LookupDTO      `json:"items"`
	Total  int64            `json:"total"`
	States map[string]int64 `json:"states,omitempty"`
}

// LookupFromModel converts a store.Lookup into the DTO representation.
func LookupFromModel(l store.Lookup) LookupDTO {
	return LookupDTO{
		ID:         l.ID,
		Country:    l.Country,
		State:      l.State,
		Cards:      l.Cards,
		AtRisk:     l.AtRisk,
		Error:      l.Error,
		DurationMs: l.DurationMs,
		CreatedAt:  l.CreatedAt,
	}
}
