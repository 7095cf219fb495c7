package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPromptChars bounds the document text sent to the completion endpoint.
// Longer documents lose their tail; this is deliberate lossy truncation to
// respect model context limits.
const MaxPromptChars = 8000

const completionTimeout = 30 * time.Second

// Extractor turns free document text into a ResumeInfo via a single
// JSON-mode chat completion. It never returns an error: any transport or
// parse failure degrades to an empty record.
type Extractor struct {
	client  *http.Client
	baseURL string
	model   string
	logger  *slog.Logger
}

func NewExtractor(log *slog.Logger, baseURL, model string) *Extractor {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Extractor{
		client:  &http.Client{Timeout: completionTimeout},
		baseURL: baseURL,
		model:   model,
		logger:  log.With(slog.String("service", "structured_extract")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float32       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends text to the completion endpoint and parses the structured
// reply. Empty text, missing API key, transport errors and malformed model
// output all yield an empty ResumeInfo.
func (e *Extractor) Extract(ctx context.Context, text, apiKey string) ResumeInfo {
	text = strings.TrimSpace(text)
	if text == "" {
		return ResumeInfo{}
	}
	if strings.TrimSpace(apiKey) == "" {
		e.logger.Warn("structured extraction skipped: no api key configured")
		return ResumeInfo{}
	}

	reqBody := chatRequest{
		Model:       e.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: resumeSystemPrompt},
			{Role: "user", Content: truncate(text, MaxPromptChars)},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		e.logger.Warn("marshal completion request failed", slog.Any("error", err))
		return ResumeInfo{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		e.logger.Warn("build completion request failed", slog.Any("error", err))
		return ResumeInfo{}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("completion request failed", slog.Any("error", err))
		return ResumeInfo{}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.logger.Warn("read completion response failed", slog.Any("error", err))
		return ResumeInfo{}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.Warn("completion endpoint returned error",
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(body), 512)))
		return ResumeInfo{}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		e.logger.Warn("decode completion response failed", slog.Any("error", err))
		return ResumeInfo{}
	}

	var info ResumeInfo
	content := removeCodeFences(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &info); err != nil {
		e.logger.Warn("parse structured record failed", slog.Any("error", err))
		return ResumeInfo{}
	}
	return info
}

// truncate returns a bounded, UTF-8-safe prefix of s.
func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// removeCodeFences strips a markdown code fence wrapper when the model
// ignores the no-fences instruction.
func removeCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
