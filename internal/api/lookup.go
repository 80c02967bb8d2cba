package api

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stability-dashboard/frontend/internal/present"
	"stability-dashboard/frontend/internal/store"
)

var errHistoryDisabled = errors.New("lookup history disabled")

// runLookup drives one presentation cycle against surface and fans the
// outcome out to metrics, history and websocket listeners.
func (s *Server) runLookup(ctx context.Context, surface present.Surface) (string, present.Outcome) {
	id := uuid.NewString()
	presenter := present.New(s.client, present.Options{
		DefaultCountry: s.defaultCountry,
		BaseURL:        s.client.BaseURL(),
		OnTransition: func(state present.State, country string) {
			if state == present.StateLoading {
				s.notifier.Broadcast(LookupEvent{Type: "started", LookupID: id, Country: country})
			}
		},
	})

	outcome := presenter.FetchAndRender(ctx, surface)

	event := LookupEvent{
		Type:     string(outcome.State),
		LookupID: id,
		Country:  outcome.Country,
		Cards:    outcome.Cards,
	}
	if outcome.Err != nil {
		event.Message = outcome.Err.Error()
	}
	s.notifier.Broadcast(event)
	s.metrics.observe(outcome)
	s.recordLookup(id, outcome)

	logrus.WithFields(logrus.Fields{
		"lookup":   id,
		"country":  outcome.Country,
		"state":    outcome.State,
		"cards":    outcome.Cards,
		"duration": outcome.Duration,
	}).Info("lookup completed")
	return id, outcome
}

func (s *Server) recordLookup(id string, outcome present.Outcome) {
	if s.db == nil {
		return
	}
	row := &store.Lookup{
		ID:         id,
		Country:    outcome.Country,
		State:      string(outcome.State),
		Cards:      outcome.Cards,
		DurationMs: outcome.Duration.Milliseconds(),
	}
	for _, item := range outcome.Items {
		if item.IsAtRisk() {
			row.AtRisk++
		}
	}
	if outcome.Err != nil {
		row.Error = outcome.Err.Error()
	}
	if err := s.db.SaveLookup(row); err != nil {
		logrus.WithError(err).WithField("lookup", id).Warn("record lookup")
	}
}
