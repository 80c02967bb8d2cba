package present

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strconv"

	"stability-dashboard/frontend/internal/predict"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var fragments = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const (
	riskClass     = "risk"
	safeClass     = "safe"
	noExplanation = "No explanation available"
)

// Card is the display form of one prediction item.
type Card struct {
	Label       string
	Text        string
	Prediction  string
	StatusClass string
	Confidence  string
	Factors     []string
	URL         string
}

// BuildCards projects items into cards, preserving order and numbering from 1.
func BuildCards(items []predict.Item) []Card {
	cards := make([]Card, 0, len(items))
	for i, item := range items {
		status := safeClass
		if item.IsAtRisk() {
			status = riskClass
		}
		factors := make([]string, 0, len(item.Explanation))
		for _, f := range item.Explanation {
			factors = append(factors, FormatFactor(f))
		}
		if len(factors) == 0 {
			factors = append(factors, noExplanation)
		}
		cards = append(cards, Card{
			Label:       "News " + strconv.Itoa(i+1),
			Text:        item.Text,
			Prediction:  item.Prediction,
			StatusClass: status,
			Confidence:  FormatConfidence(item.Confidence),
			Factors:     factors,
			URL:         item.URL,
		})
	}
	return cards
}

// RenderCards renders the result cards markup.
func RenderCards(cards []Card) (template.HTML, error) {
	return execute("cards", cards)
}

// RenderInfo renders the message shown when a country has no news.
func RenderInfo(country string) (template.HTML, error) {
	return execute("info", country)
}

// RenderError renders the error banner. It never fails; if the template cannot
// be executed a plain escaped banner is returned instead.
func RenderError(err error, baseURL string) template.HTML {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	out, execErr := execute("error", struct {
		Message string
		BaseURL string
	}{message, baseURL})
	if execErr != nil {
		return template.HTML(fmt.Sprintf(`<div class="error"><p>Error fetching results: %s</p></div>`, html.EscapeString(message)))
	}
	return out
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
