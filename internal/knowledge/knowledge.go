// Package knowledge turns an analysis corpus into the Markdown knowledge
// base a support bot is trained on.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/sitebot/internal/types"
)

// NoContentSummary stands in for the summary when no page was admitted
const NoContentSummary = "No website content could be analyzed, so no business summary is available."

const (
	temperature = 0.3
	maxTokens   = 3000
)

// Completer sends a single prompt to a language model
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Builder produces knowledge bases
type Builder struct {
	model Completer
	now   func() time.Time
}

// New creates a Builder backed by model
func New(model Completer) *Builder {
	return &Builder{model: model, now: time.Now}
}

// Summarize asks the model for a business summary of pages. With no pages
// it returns NoContentSummary without calling the model.
func (b *Builder) Summarize(ctx context.Context, pages []types.AnalyzedPage) (string, error) {
	if len(pages) == 0 {
		return NoContentSummary, nil
	}

	summary, err := b.model.Complete(ctx, summaryPrompt(pages), temperature, maxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to summarize website: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// Build summarizes result and assembles the knowledge base for workspace
func (b *Builder) Build(ctx context.Context, workspace types.Workspace, result *types.AnalysisResult) (*types.KnowledgeBase, error) {
	summary, err := b.Summarize(ctx, result.AnalyzedPages)
	if err != nil {
		return nil, err
	}

	log.Info("Built knowledge base", "company", workspace.Company, "pages", len(result.AnalyzedPages))
	return &types.KnowledgeBase{
		Company:     workspace.Company,
		BaseURL:     result.BaseURL,
		Summary:     summary,
		GeneratedAt: b.now().UTC(),
		Pages:       result.AnalyzedPages,
	}, nil
}

func summaryPrompt(pages []types.AnalyzedPage) string {
	var sb strings.Builder
	sb.WriteString("Based on the following website pages, write a comprehensive business summary for a customer support assistant. ")
	sb.WriteString("Cover what the business does, its products and services, pricing, delivery and returns, ")
	sb.WriteString("support channels and contact details, and any policies customers should know about. ")
	sb.WriteString("Only use facts present in the pages.\n\n")
	for _, p := range pages {
		fmt.Fprintf(&sb, "Page: %s\nURL: %s\nContent: %s\n\n", p.Title, p.URL, p.Content)
	}
	return sb.String()
}

var funcs = template.FuncMap{
	"date":    formatDate,
	"titleOr": titleOr,
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// titleOr falls back when a page has no title
func titleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

var knowledgeBaseTmpl = template.Must(template.New("kb").Funcs(funcs).Parse(`# {{.Company}} Knowledge Base

Source: {{.BaseURL}}
Generated: {{date .GeneratedAt}}

## Business Summary

{{.Summary}}

## Website Content
{{range .Pages}}
### {{titleOr .Title .URL}}

URL: {{.URL}}
{{if .Description}}
> {{.Description}}
{{end}}
{{.Content}}
{{end}}`))

var pageTmpl = template.Must(template.New("page").Funcs(funcs).Parse(`# {{titleOr .Title .URL}}

Source: {{.URL}}
{{if .Description}}
{{.Description}}
{{end}}
{{.Content}}
`))

// Render formats kb as a Markdown document
func Render(kb *types.KnowledgeBase) (string, error) {
	var sb strings.Builder
	if err := knowledgeBaseTmpl.Execute(&sb, kb); err != nil {
		return "", fmt.Errorf("failed to render knowledge base: %w", err)
	}
	return sb.String(), nil
}

// PageDocument formats a single page as a Markdown training document
func PageDocument(page types.AnalyzedPage) (string, error) {
	var sb strings.Builder
	if err := pageTmpl.Execute(&sb, page); err != nil {
		return "", fmt.Errorf("failed to render page %s: %w", page.URL, err)
	}
	return sb.String(), nil
}
