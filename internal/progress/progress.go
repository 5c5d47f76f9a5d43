// Package progress narrates an analysis run on the terminal: a spinner per
// discovery step, a progress bar while pages are extracted and styled
// status lines.
package progress

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/sitebot/internal/analyzer"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var stepLabels = map[string]string{
	analyzer.StepSitemap: "Reading sitemap",
	analyzer.StepCrawl:   "Crawling site",
	analyzer.StepSelect:  "Selecting relevant pages",
	analyzer.StepExtract: "Extracting content",
}

var stepResults = map[string]string{
	analyzer.StepSitemap: "Sitemap listed %d URLs",
	analyzer.StepCrawl:   "Crawl discovered %d URLs",
	analyzer.StepSelect:  "Selected %d pages",
	analyzer.StepExtract: "Admitted %d pages",
}

// Tracker reports analysis progress to a writer
type Tracker struct {
	out     io.Writer
	spinner *spinner.Spinner
	bar     progress.Model
	mu      sync.Mutex
}

// New creates a Tracker writing to out. The spinner only animates when out
// is a terminal.
func New(out io.Writer) *Tracker {
	t := &Tracker{
		out: out,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
	if f, ok := out.(*os.File); ok {
		t.spinner = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriterFile(f))
	}
	return t
}

// Title prints a headline
func (t *Tracker) Title(msg string) {
	t.println(titleStyle.Render(msg))
}

// Info prints a neutral status line
func (t *Tracker) Info(msg string) {
	t.println(infoStyle.Render("• ") + msg)
}

// Success prints a completed status line
func (t *Tracker) Success(msg string) {
	t.println(okStyle.Render("✓ ") + msg)
}

// Warn prints a warning status line
func (t *Tracker) Warn(msg string) {
	t.println(warningStyle.Render("! ") + msg)
}

// StepStarted starts the spinner for a discovery step
func (t *Tracker) StepStarted(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if step == analyzer.StepExtract || t.spinner == nil {
		return
	}
	t.spinner.Suffix = " " + label(step)
	t.spinner.Start()
}

// StepFinished stops the spinner and reports the step's outcome
func (t *Tracker) StepFinished(step string, count int) {
	t.mu.Lock()
	if t.spinner != nil {
		t.spinner.Stop()
	}
	t.mu.Unlock()

	format, ok := stepResults[step]
	if !ok {
		format = label(step) + ": %d"
	}
	t.Success(fmt.Sprintf(format, count))
}

// PageProcessed draws the progress bar for one extraction attempt
func (t *Tracker) PageProcessed(index, total int, pageURL string, admitted bool) {
	percent := 0.0
	if total > 0 {
		percent = float64(index) / float64(total)
	}

	status := okStyle.Render("added")
	if !admitted {
		status = mutedStyle.Render("skipped")
	}

	t.mu.Lock()
	bar := t.bar.ViewAs(percent)
	t.mu.Unlock()

	t.println(fmt.Sprintf("%s %d/%d %s %s", bar, index, total, formatURL(pageURL), status))
}

func (t *Tracker) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

func label(step string) string {
	if l, ok := stepLabels[step]; ok {
		return l
	}
	return step
}

// formatURL shortens long URLs, keeping the host and the end of the path
func formatURL(urlStr string) string {
	maxLen := 50
	if len(urlStr) <= maxLen {
		return urlStr
	}
	u, err := url.Parse(urlStr)
	if err != nil || len(u.Host) >= maxLen-3 {
		return "..." + urlStr[len(urlStr)-maxLen:]
	}
	path := u.Path
	if keep := maxLen - len(u.Host) - 3; len(path) > keep {
		path = "..." + path[len(path)-keep:]
	}
	return u.Host + path
}
