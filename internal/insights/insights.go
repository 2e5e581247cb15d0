// Package insights asks a generative language model for priority actions
// based on the current workshop figures.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const systemInstruction = "You are an Expert Production Manager."

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("insights disabled: no api key configured")

// Figures are the counts the summary is built from.
type Figures struct {
	Total       int `json:"total"`
	Delayed     int `json:"delayed"`
	NonConform  int `json:"non_conformities"`
	OpenRepairs int `json:"open_repairs"`
}

// Prompt renders the request sent to the model. Language "en" asks for an
// English answer, anything else for French.
func Prompt(f Figures, lang string) string {
	language := "French"
	if strings.EqualFold(lang, "en") {
		language = "English"
	}
	return fmt.Sprintf(
		"Data: Total=%d, Delays=%d, SAV=%d, Open Repairs=%d. Tasks: Provide 3 ultra-concise priority actions. Language: %s.",
		f.Total, f.Delayed, f.NonConform, f.OpenRepairs, language,
	)
}

// Client calls the generateContent endpoint.
type Client struct {
	rc     *resty.Client
	model  string
	apiKey string
}

// New creates a client for the API rooted at endpoint.
func New(endpoint, model, apiKey string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		rc.SetTimeout(timeout)
	}
	return &Client{rc: rc, model: model, apiKey: apiKey}
}

// Enabled reports whether the client has an API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction content   `json:"systemInstruction"`
	Contents          []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Summarize returns the model's recommendations for f.
func (c *Client) Summarize(ctx context.Context, f Figures, lang string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	var result generateResponse
	var failure apiError
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetPathParam("model", c.model).
		SetBody(generateRequest{
			SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
			Contents:          []content{{Role: "user", Parts: []part{{Text: Prompt(f, lang)}}}},
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("calling model: %w", err)
	}
	if resp.IsError() {
		if failure.Error.Message != "" {
			return "", fmt.Errorf("model returned %d: %s", resp.StatusCode(), failure.Error.Message)
		}
		return "", fmt.Errorf("model returned %d", resp.StatusCode())
	}

	var b strings.Builder
	for _, cand := range result.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", errors.New("model returned no text")
	}
	return strings.TrimSpace(b.String()), nil
}
