package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/go-scripts/sitebot/internal/analyzer"
	"github.com/go-scripts/sitebot/internal/browser"
	"github.com/go-scripts/sitebot/internal/config"
	"github.com/go-scripts/sitebot/internal/crawler"
	"github.com/go-scripts/sitebot/internal/demo"
	"github.com/go-scripts/sitebot/internal/extractor"
	"github.com/go-scripts/sitebot/internal/knowledge"
	"github.com/go-scripts/sitebot/internal/llm"
	"github.com/go-scripts/sitebot/internal/progress"
	"github.com/go-scripts/sitebot/internal/relevance"
	"github.com/go-scripts/sitebot/internal/replica"
	"github.com/go-scripts/sitebot/internal/sitemap"
	"github.com/go-scripts/sitebot/internal/types"
	"github.com/go-scripts/sitebot/internal/writer"
)

// CLI flags structure
type CLI struct {
	Config string `help:"Path to configuration file" default:"config.yaml" type:"path"`
	Debug  bool   `help:"Enable debug logging"`

	Analyze AnalyzeCmd `cmd:"" help:"Analyze a website and build its knowledge base"`
	Serve   ServeCmd   `cmd:"" help:"Serve analysis results and demo pages"`
}

// AnalyzeCmd analyzes a website, or rebuilds outputs from a stored analysis
type AnalyzeCmd struct {
	Target    string `arg:"" help:"Website URL, or the name of an already analyzed company"`
	CreateBot bool   `help:"Create a support bot from the knowledge base" name:"create-bot"`
	MaxPages  int    `help:"Maximum pages to visit when crawling (overrides config)"`
}

// ServeCmd serves the analysis directory
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)"`
}

// App carries what every command needs
type App struct {
	ctx     context.Context
	cfg     *config.Config
	tracker *progress.Tracker
	debug   bool
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("sitebot"),
		kong.Description("Turn a business website into a support bot knowledge base."),
		kong.UsageOnError(),
	)

	log.SetOutput(os.Stderr)
	if cli.Debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{ctx: ctx, cfg: cfg, tracker: progress.New(os.Stdout), debug: cli.Debug}
	if err := kctx.Run(app); err != nil {
		reportError(err)
		stop()
		os.Exit(1)
	}
}

// reportError logs the one-line explanation together with the full error chain
func reportError(err error) {
	log.Error(shortMessage(err), "error", err)
}

// shortMessage picks the most helpful one-line explanation of err
func shortMessage(err error) string {
	var apiErr *replica.APIError
	switch {
	case errors.As(err, &apiErr):
		msg := apiErr.UserMessage() + " (" + err.Error() + ")"
		if apiErr.IsRetryable() {
			msg += " Try again later."
		}
		return msg
	case errors.Is(err, llm.ErrMissingAPIKey):
		return "OPENAI_API_KEY is not set. Add it to the environment or a .env file."
	case errors.Is(err, replica.ErrMissingSecret):
		return "REPLICA_API_KEY is not set. It is required for --create-bot."
	case errors.Is(err, writer.ErrNoAnalysis):
		return err.Error() + ". Analyze the website URL first."
	case errors.Is(err, context.Canceled):
		return "Interrupted."
	default:
		return err.Error()
	}
}

// resolveTarget splits a target into a base URL (empty for a company name)
// and the workspace company name.
func resolveTarget(target string) (baseURL, company string, err error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", errors.New("target is required")
	}

	if strings.Contains(target, "://") {
		name, err := writer.CompanyFromURL(target)
		if err != nil {
			return "", "", err
		}
		u, err := url.Parse(target)
		if err != nil {
			return "", "", fmt.Errorf("invalid website URL %q: %w", target, err)
		}
		// The crawler dedupes by exact URL, so "https://x" and the
		// homepage link "https://x/" must be the same string.
		if u.Path == "" {
			u.Path = "/"
		}
		return u.String(), name, nil
	}

	company = writer.CompanyName(target)
	if company == "" {
		return "", "", fmt.Errorf("%q is not a usable company name", target)
	}
	return "", company, nil
}

// Run executes the analyze command
func (c *AnalyzeCmd) Run(app *App) error {
	baseURL, company, err := resolveTarget(c.Target)
	if err != nil {
		return err
	}
	if c.MaxPages > 0 {
		app.cfg.Crawl.MaxPages = c.MaxPages
	}
	ws := types.Workspace{Root: app.cfg.OutputDir, Company: company}

	model, err := llm.New(app.cfg.LLM)
	if err != nil {
		return err
	}

	var result *types.AnalysisResult
	if baseURL != "" {
		app.tracker.Title("Analyzing " + baseURL)
		result, err = newAnalyzer(app.cfg, model, app.tracker).Analyze(app.ctx, baseURL)
		if err != nil {
			return fmt.Errorf("analysis of %s failed: %w", baseURL, err)
		}
		path, err := writer.WriteAnalysis(ws, result)
		if err != nil {
			return err
		}
		app.tracker.Success(fmt.Sprintf("Analysis saved to %s", path))
	} else {
		result, err = writer.ReadAnalysis(ws)
		if err != nil {
			return err
		}
		app.tracker.Title("Using stored analysis of " + result.BaseURL)
	}

	if result.PageCount == 0 {
		app.tracker.Warn("No page had enough content; the knowledge base will be empty")
	}

	kb, kbDoc, pages, err := buildKnowledgeBase(app, ws, model, result)
	if err != nil {
		return err
	}

	var bot *types.BotDescriptor
	if c.CreateBot {
		bot, err = createBot(app, ws, kb, model.Model(), kbDoc, pages)
		if err != nil {
			return err
		}
	}

	html, err := demo.Render(kb, bot)
	if err != nil {
		return err
	}
	demoPath, err := writer.WriteDemo(ws, html)
	if err != nil {
		return err
	}
	app.tracker.Success(fmt.Sprintf("Demo page written to %s", demoPath))
	return nil
}

// newAnalyzer wires the discovery and extraction stack
func newAnalyzer(cfg *config.Config, model *llm.Client, tracker *progress.Tracker) *analyzer.Analyzer {
	browserOpts := browser.Options{
		Headless:  cfg.Crawl.HeadlessBrowser(),
		UserAgent: cfg.Crawl.UserAgent,
		Timeout:   cfg.Crawl.NavigationTimeout,
	}

	crawl := crawler.New(func(ctx context.Context) (crawler.Page, error) {
		s, err := browser.Open(ctx, browserOpts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}, cfg.Crawl.MaxPages)

	extract := extractor.New(func(ctx context.Context) (extractor.Loader, error) {
		s, err := browser.Open(ctx, browserOpts)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	picker := relevance.New(model, cfg.Analysis.Keywords, cfg.Analysis.MaxCandidates, cfg.Analysis.MaxRelevant)

	return analyzer.New(
		sitemap.NewFetcher(cfg.Crawl.SitemapTimeout, cfg.Crawl.UserAgent),
		crawl,
		picker,
		extract,
		analyzer.Options{
			PageDelay:        cfg.Analysis.PageDelay,
			MinContentLength: cfg.Analysis.MinContentLength,
			MaxContentLength: cfg.Analysis.MaxContentLength,
		},
	).WithObserver(tracker)
}

// buildKnowledgeBase summarizes the corpus and writes the Markdown outputs
func buildKnowledgeBase(app *App, ws types.Workspace, model *llm.Client, result *types.AnalysisResult) (*types.KnowledgeBase, string, []replica.TrainingDocument, error) {
	app.tracker.Info("Summarizing the business")
	kb, err := knowledge.New(model).Build(app.ctx, ws, result)
	if err != nil {
		return nil, "", nil, err
	}

	doc, err := knowledge.Render(kb)
	if err != nil {
		return nil, "", nil, err
	}
	path, err := writer.WriteKnowledgeBase(ws, doc)
	if err != nil {
		return nil, "", nil, err
	}
	app.tracker.Success(fmt.Sprintf("Knowledge base written to %s", path))

	pages := make([]replica.TrainingDocument, 0, len(kb.Pages))
	for _, page := range kb.Pages {
		pageDoc, err := knowledge.PageDocument(page)
		if err != nil {
			return nil, "", nil, err
		}
		if _, err := writer.WritePage(ws, page.URL, pageDoc); err != nil {
			return nil, "", nil, err
		}
		title := page.Title
		if title == "" {
			title = page.URL
		}
		pages = append(pages, replica.TrainingDocument{Title: title, Text: pageDoc})
	}
	return kb, doc, pages, nil
}

// createBot provisions a replica and records its descriptor
func createBot(app *App, ws types.Workspace, kb *types.KnowledgeBase, model, kbDoc string, pages []replica.TrainingDocument) (*types.BotDescriptor, error) {
	client, err := replica.New(app.cfg.Replica)
	if err != nil {
		return nil, err
	}

	app.tracker.Info("Creating support bot")
	bot, err := client.Provision(app.ctx, kb, model, kbDoc, pages)
	if err != nil {
		return nil, err
	}
	bot.KnowledgeBase = writer.KnowledgeBaseFile

	path, err := writer.WriteBotDescriptor(ws, bot)
	if err != nil {
		return nil, err
	}
	app.tracker.Success(fmt.Sprintf("Bot %s created with %d pages, saved to %s", bot.ID, bot.TrainedPages, path))
	return bot, nil
}

// Run executes the serve command
func (c *ServeCmd) Run(app *App) error {
	addr := c.Addr
	if addr == "" {
		addr = app.cfg.ServeAddr
	}
	if !app.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	return demo.Serve(app.ctx, addr, app.cfg.OutputDir)
}
