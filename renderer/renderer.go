// Package renderer formats the state of a ledger as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/fxledger"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates, _ = fs.Sub(templatesFS, "templates")

// Summary is the data of the position report.
type Summary struct {
	Asset     string
	Balance   fxledger.Balance
	Realized  fxledger.RealizedTotals
	Valuation fxledger.Valuation
	Quote     *fxledger.Quote // nil when no quote was fetched
}

// NewSummary collects the summary of l valued at price. q may be nil.
func NewSummary(l *fxledger.Ledger, q *fxledger.Quote) *Summary {
	var price *fxledger.Money
	if q != nil {
		p := q.Mark()
		price = &p
	}
	return &Summary{
		Asset:     l.Asset(),
		Balance:   l.Balance(),
		Realized:  l.RealizedTotals(),
		Valuation: l.UnrealizedValue(price),
		Quote:     q,
	}
}

// RenderSummary renders the position report to a markdown string.
func RenderSummary(s *Summary) string {
	partials := map[string]string{
		"summary_units":     "summary_units.md",
		"summary_realized":  "summary_realized.md",
		"summary_valuation": "summary_valuation.md",
	}
	return renderTemplate("summary", "summary.md", partials, s)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
