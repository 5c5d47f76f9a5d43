// Package writer persists analysis artifacts under a company workspace:
//
//	{root}/{company}/analysis.json
//	{root}/{company}/knowledge-base.md
//	{root}/{company}/pages/{page}.md
//	{root}/{company}/bots/{id}.json
//	{root}/{company}/demo.html
package writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-scripts/sitebot/internal/types"
)

const (
	AnalysisFile      = "analysis.json"
	KnowledgeBaseFile = "knowledge-base.md"
	DemoFile          = "demo.html"
	PagesDir          = "pages"
	BotsDir           = "bots"

	maxFilenameLength = 200
)

// ErrNoAnalysis is returned when a workspace has no analysis.json yet
var ErrNoAnalysis = errors.New("no analysis found")

var nonName = regexp.MustCompile(`[^a-z0-9-]+`)

// CompanyFromURL derives the workspace name from a site URL: the first
// label of the host without a leading "www.".
func CompanyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", rawURL, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	label, _, _ := strings.Cut(host, ".")
	return CompanyName(label), nil
}

// CompanyName normalizes a user supplied company name into a directory name
func CompanyName(name string) string {
	return strings.Trim(nonName.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-"), "-")
}

// WriteAnalysis stores result as analysis.json
func WriteAnalysis(ws types.Workspace, result *types.AnalysisResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}
	return writeFile(filepath.Join(ws.Dir(), AnalysisFile), data)
}

// ReadAnalysis loads a previously written analysis.json
func ReadAnalysis(ws types.Workspace) (*types.AnalysisResult, error) {
	path := filepath.Join(ws.Dir(), AnalysisFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for %q in %s", ErrNoAnalysis, ws.Company, ws.Root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &result, nil
}

// WriteKnowledgeBase stores the rendered knowledge base document
func WriteKnowledgeBase(ws types.Workspace, doc string) (string, error) {
	return writeFile(filepath.Join(ws.Dir(), KnowledgeBaseFile), []byte(doc))
}

// WritePage stores the training document of one page
func WritePage(ws types.Workspace, pageURL, doc string) (string, error) {
	return writeFile(filepath.Join(ws.Dir(), PagesDir, sanitizeURLForFilename(pageURL)), []byte(doc))
}

// WriteBotDescriptor stores bot as bots/{id}.json
func WriteBotDescriptor(ws types.Workspace, bot *types.BotDescriptor) (string, error) {
	if bot.ID == "" {
		return "", errors.New("bot descriptor has no ID")
	}
	data, err := json.MarshalIndent(bot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode bot descriptor: %w", err)
	}
	name := sanitizeName(bot.ID) + ".json"
	return writeFile(filepath.Join(ws.Dir(), BotsDir, name), data)
}

// WriteDemo stores the demo page
func WriteDemo(ws types.Workspace, html []byte) (string, error) {
	return writeFile(filepath.Join(ws.Dir(), DemoFile), html)
}

func writeFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// sanitizeURLForFilename converts a URL into a safe, flat filename with .md extension
func sanitizeURLForFilename(pageURL string) string {
	replacer := strings.NewReplacer(
		"http://", "",
		"https://", "",
		"www.", "",
		"/", "_",
		"\\", "_",
		":", "_",
		"?", "_",
		"&", "_",
		"=", "_",
		"#", "_",
		"*", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
		".", "_",
	)

	sanitized := strings.Trim(replacer.Replace(pageURL), "_")
	if sanitized == "" {
		sanitized = "index"
	}
	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
	}
	return sanitized + ".md"
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
