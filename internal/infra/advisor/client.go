package advisor

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

	"cabao-quiz-service/internal/domain"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("advisor not configured")

const defaultModel = "gpt-4o-mini"

// Client asks an OpenAI-compatible chat endpoint for hints and end-of-mission
// messages. It implements app.HintProvider and app.FeedbackProvider.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: normalizeEndpoint(baseURL),
		apiKey:   strings.TrimSpace(apiKey),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) SergeantHint(ctx context.Context, q domain.Question) (string, error) {
	prompt := fmt.Sprintf("Dê um bizu (dica sutil) para a seguinte questão de prova de cabo. Não diga a resposta. Use gírias militares brasileiras profissionais.\nQuestão: %s\nOpções: %s",
		q.Text, strings.Join(q.Options, ", "))
	return c.complete(ctx, sergeantPersona, prompt, 0.7)
}

func (c *Client) MissionFeedback(ctx context.Context, score int, won bool) (string, error) {
	outcome := "DERROTADO"
	if won {
		outcome = "VITORIOSO"
	}
	prompt := fmt.Sprintf("O fuzileiro naval terminou sua missão com %d pontos. O resultado foi %s. Dê uma mensagem de incentivo militar curta.", score, outcome)
	return c.complete(ctx, "", prompt, 0.7)
}

const sergeantPersona = "Você é o Sargento Bizu, um instrutor rígido do Corpo de Fuzileiros Navais brasileiro."

func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	messages := make([]map[string]string, 0, 2)
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": user})
	payload := map[string]any{
		"model":       c.model,
		"temperature": temperature,
		"messages":    messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("advisor request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("advisor status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return "", fmt.Errorf("decode advisor response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("advisor returned no choices")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func normalizeEndpoint(base string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(base), "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com"
	}
	switch {
	case strings.HasSuffix(endpoint, "/chat/completions"):
		return endpoint
	case strings.HasSuffix(endpoint, "/v1"):
		return endpoint + "/chat/completions"
	default:
		return endpoint + "/v1/chat/completions"
	}
}
