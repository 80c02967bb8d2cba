package present

import "html/template"

// Surface is the set of page regions a presentation cycle drives: the
// country input, the results container, the error container and the loading
// indicator.
type Surface interface {
	Input() string
	SetResults(content template.HTML)
	SetError(content template.HTML)
	SetLoading(visible bool)
}

// Document is an in-memory Surface. The server builds one per request and
// renders it into the page once the cycle completes.
type Document struct {
	Country string
	Results template.HTML
	Error   template.HTML
	Loading bool
}

// NewDocument returns a document whose input holds country.
func NewDocument(country string) *Document {
	return &Document{Country: country}
}

func (d *Document) Input() string { return d.Country }

func (d *Document) SetResults(content template.HTML) { d.Results = content }

func (d *Document) SetError(content template.HTML) { d.Error = content }

func (d *Document) SetLoading(visible bool) { d.Loading = visible }
