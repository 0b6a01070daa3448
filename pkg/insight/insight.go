// Package insight is the optional AI collaborator. It re-ranks
// heuristic entry-point candidates and writes a short project brief by
// calling an OpenAI-compatible chat completions endpoint.
//
// The collaborator is strictly advisory: every error path collapses to
// ErrUnavailable and the caller falls back to the heuristic order.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oakmap/codemap/pkg/config"
)

// ErrUnavailable reports that no insight could be produced. Callers
// degrade to heuristic results; they never fail the run on it.
var ErrUnavailable = errors.New("insight provider unavailable")

// Candidate is one heuristically ranked file offered for re-ranking.
type Candidate struct {
	Path      string  `json:"path"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// Request asks the collaborator for a brief and a re-ranked order.
type Request struct {
	Project    string      `json:"project"`
	Candidates []Candidate `json:"candidates"`
	// Want bounds how many paths the collaborator should return.
	Want int `json:"want"`
}

// Ranking is one re-ranked path with the collaborator's reason.
type Ranking struct {
	Path   string `json:"path"`
	Rank   int    `json:"rank"`
	Reason string `json:"reason,omitempty"`
}

// Response carries the collaborator's output.
type Response struct {
	Brief    string    `json:"brief"`
	Rankings []Ranking `json:"rankings"`
}

// Ranker produces insight responses. The engine accepts any
// implementation so tests can substitute a canned one.
type Ranker interface {
	Rank(ctx context.Context, req *Request) (*Response, error)
}

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	cfg    config.InsightConfig
	apiKey string
	http   *http.Client
}

// NewClient builds a client from config. The API key is resolved from
// the environment first, then the config file.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Insights.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		cfg:    cfg.Insights,
		apiKey: cfg.ResolveAPIKey(),
		http:   &http.Client{Timeout: timeout},
	}
}

const systemPrompt = `You are helping a developer get oriented in an unfamiliar codebase.
Given candidate entry-point files with heuristic scores, pick the best reading order
and write a two-sentence project brief. Respond with a JSON object:
{"brief": "...", "rankings": [{"path": "...", "reason": "..."}]}
Only use paths from the candidate list.`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Rank sends the candidates for re-ranking. Any transport, auth, or
// parse failure returns an error wrapping ErrUnavailable.
func (c *Client) Rank(ctx context.Context, req *Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, resp.Status, strings.TrimSpace(string(b)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	out, err := parseContent(chat.Choices[0].Message.Content, req)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseContent validates the model output against the candidate set:
// unknown paths are dropped, ranks are reassigned densely, and the
// result is truncated to req.Want.
func parseContent(content string, req *Request) (*Response, error) {
	var raw struct {
		Brief    string `json:"brief"`
		Rankings []struct {
			Path   string `json:"path"`
			Reason string `json:"reason"`
		} `json:"rankings"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed completion: %v", ErrUnavailable, err)
	}

	known := make(map[string]bool, len(req.Candidates))
	for _, c := range req.Candidates {
		known[c.Path] = true
	}

	out := &Response{Brief: strings.TrimSpace(raw.Brief)}
	seen := make(map[string]bool)
	for _, r := range raw.Rankings {
		if !known[r.Path] || seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		out.Rankings = append(out.Rankings, Ranking{
			Path:   r.Path,
			Rank:   len(out.Rankings) + 1,
			Reason: strings.TrimSpace(r.Reason),
		})
		if req.Want > 0 && len(out.Rankings) == req.Want {
			break
		}
	}
	if len(out.Rankings) == 0 && out.Brief == "" {
		return nil, fmt.Errorf("%w: completion contained no usable rankings", ErrUnavailable)
	}
	return out, nil
}
