// Package demo renders a company's demo page and serves the analysis
// workspace over HTTP.
package demo

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/go-scripts/sitebot/internal/types"
)

// Page is the data behind demo.html
type Page struct {
	KnowledgeBase *types.KnowledgeBase
	Bot           *types.BotDescriptor
}

var pageTmpl = template.Must(template.New("demo").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.KnowledgeBase.Company}} support bot demo</title>
  <style>
    body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #222; }
    .summary { white-space: pre-wrap; background: #f6f6f9; padding: 1rem; border-radius: 8px; }
    .bot { border: 1px solid #7d56f4; border-radius: 8px; padding: 1rem; margin: 1.5rem 0; }
    .muted { color: #777; }
  </style>
</head>
<body>
  <h1>{{.KnowledgeBase.Company}}</h1>
  <p class="muted">Source: <a href="{{.KnowledgeBase.BaseURL}}">{{.KnowledgeBase.BaseURL}}</a></p>
{{- with .Bot}}
  <div class="bot" data-replica-id="{{.ID}}">
    <h2>{{.Name}}</h2>
    <p>Replica <code>{{.ID}}</code> running {{.Model}}, trained on {{.TrainedPages}} pages.</p>
  </div>
{{- else}}
  <div class="bot"><p class="muted">No bot has been created for this company yet.</p></div>
{{- end}}
  <h2>Business summary</h2>
  <div class="summary">{{.KnowledgeBase.Summary}}</div>
  <h2>Pages in the knowledge base</h2>
  <ul>
{{- range .KnowledgeBase.Pages}}
    <li><a href="{{.URL}}">{{if .Title}}{{.Title}}{{else}}{{.URL}}{{end}}</a></li>
{{- end}}
  </ul>
</body>
</html>
`))

// Render produces demo.html for kb. bot may be nil.
func Render(kb *types.KnowledgeBase, bot *types.BotDescriptor) ([]byte, error) {
	if kb == nil {
		return nil, fmt.Errorf("knowledge base is required")
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, Page{KnowledgeBase: kb, Bot: bot}); err != nil {
		return nil, fmt.Errorf("failed to render demo page: %w", err)
	}
	return buf.Bytes(), nil
}
