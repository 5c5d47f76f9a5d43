// Package replica creates support bots on the replica platform and uploads
// their training material.
package replica

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/sitebot/internal/config"
	"github.com/go-scripts/sitebot/internal/types"
)

// Client talks to the replica API
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	apiVersion string
	ownerID    string
}

// CreateRequest describes a new replica
type CreateRequest struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"shortDescription"`
	Greeting         string   `json:"greeting"`
	Slug             string   `json:"slug"`
	OwnerID          string   `json:"ownerID,omitempty"`
	Private          bool     `json:"private"`
	LLM              LLMSpec  `json:"llm"`
	Tags             []string `json:"tags,omitempty"`
}

// LLMSpec selects the model and system prompt of a replica
type LLMSpec struct {
	Model         string `json:"model"`
	SystemMessage string `json:"systemMessage"`
}

type createResponse struct {
	Success bool   `json:"success"`
	UUID    string `json:"uuid"`
}

type trainingRequest struct {
	Title   string `json:"title,omitempty"`
	RawText string `json:"rawText"`
}

// New creates a Client from the replica configuration
func New(cfg config.ReplicaConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingSecret
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		ownerID:    cfg.OwnerID,
	}, nil
}

// CreateReplica registers a new replica and returns its ID
func (c *Client) CreateReplica(ctx context.Context, req CreateRequest) (string, error) {
	if req.OwnerID == "" {
		req.OwnerID = c.ownerID
	}

	var resp createResponse
	if err := c.post(ctx, "/v1/replicas", req, &resp); err != nil {
		return "", err
	}
	if resp.UUID == "" {
		return "", newInvalidResponseError("response carries no replica ID", nil)
	}
	return resp.UUID, nil
}

// AddTraining uploads one text document to the replica's knowledge
func (c *Client) AddTraining(ctx context.Context, replicaID, title, text string) error {
	path := "/v1/replicas/" + url.PathEscape(replicaID) + "/training"
	return c.post(ctx, path, trainingRequest{Title: title, RawText: text}, nil)
}

// TrainingDocument is a titled text to upload
type TrainingDocument struct {
	Title string
	Text  string
}

// Provision creates a replica for kb and trains it with the knowledge base
// document followed by the per-page documents. The knowledge base upload
// must succeed; page uploads that fail are logged and skipped.
func (c *Client) Provision(ctx context.Context, kb *types.KnowledgeBase, model string, knowledgeDoc string, pages []TrainingDocument) (*types.BotDescriptor, error) {
	name := kb.Company + " Support"
	req := CreateRequest{
		Name:             name,
		ShortDescription: fmt.Sprintf("Customer support assistant for %s", kb.BaseURL),
		Greeting:         fmt.Sprintf("Hi! I can answer questions about %s. How can I help?", kb.Company),
		Slug:             Slug(kb.Company) + "-support-" + fmt.Sprint(time.Now().Unix()),
		LLM: LLMSpec{
			Model:         model,
			SystemMessage: systemMessage(kb),
		},
		Tags: []string{"support", "sitebot"},
	}

	id, err := c.CreateReplica(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create replica: %w", err)
	}
	log.Info("Created replica", "id", id, "name", name)

	if err := c.AddTraining(ctx, id, kb.Company+" knowledge base", knowledgeDoc); err != nil {
		return nil, fmt.Errorf("failed to upload knowledge base to replica %s: %w", id, err)
	}

	trained := 0
	for _, doc := range pages {
		if err := c.AddTraining(ctx, id, doc.Title, doc.Text); err != nil {
			log.Warn("Failed to upload page", "replica", id, "title", doc.Title, "error", err)
			continue
		}
		trained++
	}

	return &types.BotDescriptor{
		ID:           id,
		Name:         name,
		Company:      kb.Company,
		BaseURL:      kb.BaseURL,
		Model:        model,
		TrainedPages: trained,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func systemMessage(kb *types.KnowledgeBase) string {
	return fmt.Sprintf("You are the customer support assistant of %s (%s). "+
		"Answer questions using only the training material about the business. "+
		"If the answer is not in it, say so and point the customer to the website.\n\n"+
		"Business summary:\n%s", kb.Company, kb.BaseURL, kb.Summary)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and joins its alphanumeric runs with dashes
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-ORGANIZATION-SECRET", c.apiKey)
	if c.apiVersion != "" {
		req.Header.Set("X-API-Version", c.apiVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newStatusError(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newInvalidResponseError("failed to decode response", err)
	}
	return nil
}
