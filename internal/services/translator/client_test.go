package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestTranslateSendsTaggedTextAndPrompt(t *testing.T) {
	var gotBody chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(completionResponse("<0>hello</0> <1>world</1>")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "demo-model", TargetLanguage: "French"})
	translated, err := client.Translate(context.Background(), "<0>こんにちは</0> <1>世界</1>")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if translated != "<0>hello</0> <1>world</1>" {
		t.Fatalf("unexpected translation: %q", translated)
	}
	if gotBody.Model != "demo-model" {
		t.Fatalf("unexpected model: %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(gotBody.Messages))
	}
	if !strings.Contains(gotBody.Messages[0].Content, "Translate the following text to French") {
		t.Fatalf("prompt missing target language: %q", gotBody.Messages[0].Content)
	}
	if !strings.Contains(gotBody.Messages[0].Content, "same XML format") {
		t.Fatalf("prompt missing format instruction: %q", gotBody.Messages[0].Content)
	}
	if gotBody.Messages[1].Content != "<0>こんにちは</0> <1>世界</1>" {
		t.Fatalf("unexpected user content: %q", gotBody.Messages[1].Content)
	}
}

func TestTranslateRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://example.invalid", Model: "demo"})
	if _, err := client.Translate(context.Background(), "<0>text</0>"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestTranslateRequiresText(t *testing.T) {
	client := NewClient(Config{APIKey: "key", Model: "demo"})
	if _, err := client.Translate(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestTranslateRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(completionResponse("<0>ok</0>"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	translated, err := client.Translate(context.Background(), "<0>え</0>")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if translated != "<0>ok</0>" {
		t.Fatalf("unexpected translation: %q", translated)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep honoring Retry-After, got %v", slept)
	}
}

func TestTranslateDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.Translate(context.Background(), "<0>text</0>"); err == nil {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Fatalf("expected single call for 401, got %d", calls)
	}
}

func TestTranslateRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = "<0>done</0>"
		}
		_ = json.NewEncoder(w).Encode(completionResponse(content))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	translated, err := client.Translate(context.Background(), "<0>え</0>")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if translated != "<0>done</0>" {
		t.Fatalf("unexpected translation: %q", translated)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestTranslateToleratesDeltaSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"delta": map[string]any{"content": "<0>streamed</0>"},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	translated, err := client.Translate(context.Background(), "<0>え</0>")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if translated != "<0>streamed</0>" {
		t.Fatalf("unexpected translation: %q", translated)
	}
}

func TestTranslateDefaultsTargetLanguage(t *testing.T) {
	client := NewClient(Config{APIKey: "key"})
	if client.TargetLanguage() != "English" {
		t.Fatalf("unexpected default target language: %q", client.TargetLanguage())
	}
}
