package types

import (
	"path/filepath"
	"time"
)

// PageContent is the raw extraction result for a single URL
type PageContent struct {
	Title           string
	MetaDescription string
	Content         string
}

// AnalyzedPage is a PageContent admitted into the corpus
type AnalyzedPage struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// AnalysisResult is the terminal artifact of one analysis run
type AnalysisResult struct {
	BaseURL         string         `json:"baseUrl"`
	AnalyzedPages   []AnalyzedPage `json:"analyzedPages"`
	AnalysisDate    time.Time      `json:"analysisDate"`
	PageCount       int            `json:"pageCount"`
	DiscoveredCount int            `json:"discoveredCount"`
}

// KnowledgeBase is the structured document derived from a corpus
type KnowledgeBase struct {
	Company     string
	BaseURL     string
	Summary     string
	GeneratedAt time.Time
	Pages       []AnalyzedPage
}

// BotDescriptor records a replica created on the bot platform
type BotDescriptor struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Company       string    `json:"company"`
	BaseURL       string    `json:"baseUrl"`
	Model         string    `json:"model"`
	KnowledgeBase string    `json:"knowledgeBase"`
	TrainedPages  int       `json:"trainedPages"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Workspace identifies where artifacts for one company live.
// It is passed explicitly to every persistence and bot call.
type Workspace struct {
	Root    string
	Company string
}

// Dir returns the company directory inside the workspace root
func (w Workspace) Dir() string {
	return filepath.Join(w.Root, w.Company)
}
