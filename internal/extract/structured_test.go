package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractParsesStructuredReply(t *testing.T) {
	t.Parallel()

	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"firstname\":\"Jane\",\"phone\":\"+447123456789\"}"}}]}`))
	}))
	defer srv.Close()

	e := NewExtractor(slog.Default(), srv.URL, "gpt-4o-mini")
	info := e.Extract(context.Background(), "Jane Doe resume text", "test-key")
	if info.Firstname != "Jane" || info.Phone != "+447123456789" {
		t.Errorf("info = %+v", info)
	}
	if captured.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %q", captured.ResponseFormat.Type)
	}
	if captured.Temperature != 0 {
		t.Errorf("temperature = %v", captured.Temperature)
	}
}

func TestExtractTruncatesLongInput(t *testing.T) {
	t.Parallel()

	var userContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		userContent = req.Messages[len(req.Messages)-1].Content
		w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	e := NewExtractor(slog.Default(), srv.URL, "gpt-4o-mini")
	e.Extract(context.Background(), strings.Repeat("a", MaxPromptChars+500), "key")
	if len(userContent) != MaxPromptChars {
		t.Errorf("prompt length = %d, want %d", len(userContent), MaxPromptChars)
	}
}

func TestExtractDegradesToEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed content", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[{"message":{"content":"not json at all"}}]}`))
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			e := NewExtractor(slog.Default(), srv.URL, "gpt-4o-mini")
			info := e.Extract(context.Background(), "some text", "key")
			if !info.IsEmpty() {
				t.Errorf("expected empty record, got %+v", info)
			}
		})
	}
}

func TestExtractSkipsWithoutAPIKey(t *testing.T) {
	t.Parallel()

	e := NewExtractor(slog.Default(), "http://127.0.0.1:1", "gpt-4o-mini")
	if info := e.Extract(context.Background(), "text", ""); !info.IsEmpty() {
		t.Errorf("expected empty record, got %+v", info)
	}
}

func TestExtractHandlesCodeFences(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"` + "```json\\n{\\\"lastname\\\":\\\"Doe\\\"}\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	e := NewExtractor(slog.Default(), srv.URL, "gpt-4o-mini")
	info := e.Extract(context.Background(), "text", "key")
	if info.Lastname != "Doe" {
		t.Errorf("info = %+v", info)
	}
}

func TestTruncateUTF8Safe(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("é", 100)
	got := truncate(s, 101)
	if !utf8.ValidString(got) {
		t.Fatal("truncate split a rune")
	}
	if len(got) != 100 {
		t.Errorf("len = %d, want 100", len(got))
	}
}
