package aiservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/findit/internal/core/domain"
	"github.com/kirillkom/findit/internal/infrastructure/resilience"
)

const analyzeTextPath = "/analyze/text-enhanced"

// Client talks to the AI analysis service that extracts keywords from item text.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type analyzeTextRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

type analyzeTextResponse struct {
	Success  bool `json:"success"`
	Analysis struct {
		Keywords []string `json:"keywords"`
	} `json:"analysis"`
}

func (c *Client) AnalyzeText(ctx context.Context, item domain.Item) (domain.TextAnalysis, error) {
	request := analyzeTextRequest{
		Title:       item.Title,
		Description: item.Description,
		Category:    string(item.Category),
		Tags:        item.Tags,
	}
	if request.Tags == nil {
		request.Tags = []string{}
	}

	var response analyzeTextResponse
	call := func(callCtx context.Context) error {
		response = analyzeTextResponse{}
		return c.postJSON(callCtx, analyzeTextPath, request, &response, "analyze_text")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ai.analyze_text", call, classifyServiceError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.TextAnalysis{}, wrapTemporaryIfNeeded("ai.analyze_text", err)
	}
	if !response.Success {
		return domain.TextAnalysis{}, fmt.Errorf("ai analyze_text: service reported failure")
	}

	return domain.TextAnalysis{Keywords: cleanKeywords(response.Analysis.Keywords)}, nil
}

func cleanKeywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, keyword := range raw {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if _, ok := seen[keyword]; ok {
			continue
		}
		seen[keyword] = struct{}{}
		out = append(out, keyword)
	}
	return out
}
