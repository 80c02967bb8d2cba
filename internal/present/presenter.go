package present

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"stability-dashboard/frontend/internal/predict"
	"stability-dashboard/frontend/internal/util"
)

// DefaultCountry is used when the input is left empty.
const DefaultCountry = "in"

var errNoSource = errors.New("no prediction source configured")

// State is where a presentation cycle stands.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
	StateError     State = "error"
)

// Terminal reports whether the cycle has finished in this state.
func (s State) Terminal() bool {
	return s == StateEmpty || s == StatePopulated || s == StateError
}

// Source fetches live predictions for a country.
type Source interface {
	PredictLive(ctx context.Context, country string) ([]predict.Item, error)
}

// Options tunes a Presenter.
type Options struct {
	DefaultCountry string
	// BaseURL is quoted in the error banner so users know which backend to check.
	BaseURL string
	// OnTransition, when set, is called as the cycle enters loading and again
	// when it reaches its terminal state.
	OnTransition func(state State, country string)
}

// Outcome summarizes a completed cycle.
type Outcome struct {
	Country  string
	State    State
	Items    []predict.Item
	Cards    int
	Err      error
	Duration time.Duration
}

// Presenter runs the query-and-render cycle against a Surface.
type Presenter struct {
	source         Source
	defaultCountry string
	baseURL        string
	onTransition   func(State, string)
}

// New constructs a Presenter.
func New(source Source, opts Options) *Presenter {
	country := opts.DefaultCountry
	if country == "" {
		country = DefaultCountry
	}
	return &Presenter{
		source:         source,
		defaultCountry: country,
		baseURL:        opts.BaseURL,
		onTransition:   opts.OnTransition,
	}
}

// ResolveCountry substitutes the default for an empty input. Anything else is
// returned untouched.
func (p *Presenter) ResolveCountry(input string) string {
	if input == "" {
		return p.defaultCountry
	}
	return input
}

// FetchAndRender clears the surface, shows the loading indicator, queries the
// backend and leaves the surface holding either an info message, the result
// cards, or an error banner. The loading indicator is always hidden on return
// and no error escapes; failures are logged and reported in the Outcome.
func (p *Presenter) FetchAndRender(ctx context.Context, s Surface) Outcome {
	timer := util.StartTimer()
	country := p.ResolveCountry(s.Input())

	s.SetResults("")
	s.SetError("")
	s.SetLoading(true)
	p.transition(StateLoading, country)

	outcome := Outcome{Country: country}
	if err := p.render(ctx, s, country, &outcome); err != nil {
		s.SetLoading(false)
		s.SetError(RenderError(err, p.baseURL))
		logrus.WithError(err).WithField("country", country).Error("error fetching results")
		outcome.State = StateError
		outcome.Items = nil
		outcome.Cards = 0
		outcome.Err = err
	}

	outcome.Duration = timer.Elapsed()
	p.transition(outcome.State, country)
	return outcome
}

func (p *Presenter) render(ctx context.Context, s Surface, country string, outcome *Outcome) error {
	if p.source == nil {
		return &predict.RequestFailure{Kind: predict.FailureTransport, Err: errNoSource}
	}
	items, err := p.source.PredictLive(ctx, country)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		info, err := RenderInfo(country)
		if err != nil {
			return err
		}
		s.SetLoading(false)
		s.SetResults(info)
		outcome.State = StateEmpty
		return nil
	}

	cards := BuildCards(items)
	markup, err := RenderCards(cards)
	if err != nil {
		return err
	}
	s.SetLoading(false)
	s.SetResults(markup)
	outcome.State = StatePopulated
	outcome.Items = items
	outcome.Cards = len(cards)
	return nil
}

func (p *Presenter) transition(state State, country string) {
	if p.onTransition != nil {
		p.onTransition(state, country)
	}
}
