package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ametel/vidrank/internal/llm"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client talks to the Google Generative Language API for embeddings and
// structured generation. It implements llm.Provider.
type Client struct {
	baseURL    string
	apiKey     string
	genModel   string
	embedModel string
	httpClient *http.Client
}

// New creates a Client. Pass an empty baseURL to use the public endpoint.
func New(baseURL, apiKey, genModel, embedModel string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// embedContentRequest is the JSON body for POST /models/{m}:embedContent.
type embedContentRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body := embedContentRequest{
		Model:   "models/" + c.embedModel,
		Content: content{Parts: []part{{Text: text}}},
	}

	var result embedContentResponse
	if err := c.post(ctx, fmt.Sprintf("/models/%s:embedContent", c.embedModel), body, &result); err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(result.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding")
	}
	return result.Embedding.Values, nil
}

// generateContentRequest is the JSON body for POST /models/{m}:generateContent.
type generateContentRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMIMEType string      `json:"responseMimeType"`
	ResponseSchema   *llm.Schema `json:"responseSchema,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateStructured requests JSON output constrained by req.Schema and
// validates the response against it before returning.
func (c *Client) GenerateStructured(ctx context.Context, req llm.Request) ([]byte, error) {
	body := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.User}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}

	var result generateContentResponse
	if err := c.post(ctx, fmt.Sprintf("/models/%s:generateContent", c.genModel), body, &result); err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini generate: no candidates in response")
	}

	raw := []byte(result.Candidates[0].Content.Parts[0].Text)
	if req.Schema != nil {
		if err := req.Schema.Validate(raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// IsRunning reports whether the API answers the model list endpoint.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models?pageSize=1", nil)
	if err != nil {
		return false
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
