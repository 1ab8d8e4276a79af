// Package gemini provides a client for the Google Generative Language API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Gemini operations used by the claims pipeline.
type Client interface {
	// GenerateContent sends a multimodal prompt to the named model and
	// returns the first candidate's text.
	GenerateContent(ctx context.Context, model string, req Request) (*Response, error)
}

// Request is a single generateContent call: ordered parts plus output
// configuration.
type Request struct {
	Parts []Part
	// JSONOutput asks the model to emit application/json.
	JSONOutput bool
	// Temperature, when non-nil, overrides the model default.
	Temperature *float64
}

// Part is one element of the prompt: either text or inline image data.
type Part struct {
	Text       string
	InlineData *Blob
}

// Blob is base64-encoded inline media.
type Blob struct {
	MIMEType string
	Data     string
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline JPEG part from base64 data.
func ImagePart(mimeType, base64Data string) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: base64Data}}
}

// Response is the parsed generateContent result.
type Response struct {
	Text  string
	Usage Usage
}

// Usage tracks token consumption reported by the API.
type Usage struct {
	PromptTokens    int `json:"promptTokenCount"`
	ResponseTokens  int `json:"candidatesTokenCount"`
	TotalTokenCount int `json:"totalTokenCount"`
}

// StatusError is a non-2xx API response. Callers decide retryability from
// the status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.Code, e.Body)
}

// Option configures the Gemini client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Gemini client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire types for the generateContent payload

type wirePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *wireBlob `json:"inline_data,omitempty"`
}

type wireBlob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	ResponseMIMEType string   `json:"response_mime_type,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

type wireRequest struct {
	Contents         []wireContent         `json:"contents"`
	GenerationConfig *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata Usage `json:"usageMetadata"`
}

func (c *httpClient) GenerateContent(ctx context.Context, model string, req Request) (*Response, error) {
	if len(req.Parts) == 0 {
		return nil, eris.New("gemini: request has no parts")
	}

	parts := make([]wirePart, 0, len(req.Parts))
	for _, p := range req.Parts {
		wp := wirePart{Text: p.Text}
		if p.InlineData != nil {
			wp.InlineData = &wireBlob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
		}
		parts = append(parts, wp)
	}

	payload := wireRequest{Contents: []wireContent{{Parts: parts}}}
	if req.JSONOutput || req.Temperature != nil {
		cfg := &wireGenerationConfig{Temperature: req.Temperature}
		if req.JSONOutput {
			cfg.ResponseMIMEType = "application/json"
		}
		payload.GenerationConfig = cfg
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: marshal request")
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var parsed wireResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, eris.Wrap(err, "gemini: parse response")
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, eris.New("gemini: response has no candidates")
	}

	return &Response{
		Text:  parsed.Candidates[0].Content.Parts[0].Text,
		Usage: parsed.UsageMetadata,
	}, nil
}
