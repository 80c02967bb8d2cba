package predict

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AtRisk is the prediction label the backend assigns to unstable news items.
const AtRisk = "At Risk"

// Item is one classified news article returned by the prediction backend.
type Item struct {
	Text        string   `json:"text"`
	Prediction  string   `json:"prediction"`
	Confidence  float64  `json:"confidence"`
	Explanation []Factor `json:"explanation,omitempty"`
	URL         string   `json:"url"`
}

// UnmarshalJSON rejects items without a numeric confidence so that a broken
// payload fails as a whole instead of rendering partially.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text        string   `json:"text"`
		Prediction  string   `json:"prediction"`
		Confidence  *float64 `json:"confidence"`
		Explanation []Factor `json:"explanation"`
		URL         string   `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Confidence == nil {
		return errors.New("prediction item missing confidence")
	}
	*i = Item{
		Text:        raw.Text,
		Prediction:  raw.Prediction,
		Confidence:  *raw.Confidence,
		Explanation: raw.Explanation,
		URL:         raw.URL,
	}
	return nil
}

// IsAtRisk reports whether the item carries the exact "At Risk" label.
func (i Item) IsAtRisk() bool {
	return i.Prediction == AtRisk
}

// Factor is a single (name, weight) explanation pair. The backend encodes it
// as a two element JSON array; the weight is usually a number but is kept raw
// so that other values can be shown verbatim.
type Factor struct {
	Name   string
	Weight json.RawMessage
}

// NewFactor builds a factor with a numeric weight.
func NewFactor(name string, weight float64) Factor {
	return Factor{Name: name, Weight: json.RawMessage(strconv.FormatFloat(weight, 'g', -1, 64))}
}

// UnmarshalJSON decodes the [name, weight] array form.
func (f *Factor) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("explanation factor: %w", err)
	}
	if len(parts) == 0 {
		return errors.New("explanation factor is empty")
	}
	f.Name = rawText(parts[0])
	f.Weight = nil
	if len(parts) > 1 {
		f.Weight = append(json.RawMessage(nil), bytes.TrimSpace(parts[1])...)
	}
	return nil
}

// MarshalJSON writes the factor back in the [name, weight] array form.
func (f Factor) MarshalJSON() ([]byte, error) {
	weight := f.Weight
	if len(bytes.TrimSpace(weight)) == 0 {
		weight = json.RawMessage("null")
	}
	return json.Marshal([]any{f.Name, weight})
}

// Numeric returns the weight as a float when it was sent as a JSON number.
func (f Factor) Numeric() (float64, bool) {
	trimmed := bytes.TrimSpace(f.Weight)
	if len(trimmed) == 0 {
		return 0, false
	}
	if c := trimmed[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// WeightText renders a non-numeric weight as-is.
func (f Factor) WeightText() string {
	return rawText(f.Weight)
}

func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return strings.TrimSpace(string(trimmed))
}

// Article is a news item submitted for manual classification.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url"`
}

type predictRequest struct {
	News []Article `json:"news"`
}
