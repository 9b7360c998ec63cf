package tokens

import (
	"testing"

	"github.com/tiktoken-go/tokenizer"
)

func TestEstimateTokens(t *testing.T) {
	est := NewEstimator()

	count, err := est.EstimateTokens("gpt-4o", "Hello, world!")
	if err != nil {
		t.Fatalf("EstimateTokens() error = %v", err)
	}
	if count == 0 {
		t.Error("expected non-zero token count")
	}

	longer, err := est.EstimateTokens("gpt-4o", "Hello, world! This is a longer piece of text that should tokenize to more tokens.")
	if err != nil {
		t.Fatalf("EstimateTokens() error = %v", err)
	}
	if longer <= count {
		t.Errorf("longer text = %d tokens, want more than %d", longer, count)
	}
}

func TestEstimateTokens_EmptyText(t *testing.T) {
	est := NewEstimator()

	count, err := est.EstimateTokens("gpt-4o", "")
	if err != nil {
		t.Fatalf("EstimateTokens() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 for empty text", count)
	}
}

func TestEstimateTokens_UnknownModelFallsBack(t *testing.T) {
	est := NewEstimator()

	count, err := est.EstimateTokens("some-future-model", "Hello, world!")
	if err != nil {
		t.Fatalf("EstimateTokens() error = %v", err)
	}
	if count == 0 {
		t.Error("expected non-zero token count for unknown model")
	}
}

func TestModelToEncoding(t *testing.T) {
	tests := []struct {
		model    string
		expected tokenizer.Encoding
	}{
		{"gpt-4", tokenizer.Cl100kBase},
		{"gpt-3.5-turbo", tokenizer.Cl100kBase},
		{"gpt-4o", tokenizer.O200kBase},
		{"gpt-4.1", tokenizer.O200kBase},
		{"gpt-5", tokenizer.O200kBase},
		{"o3-mini", tokenizer.O200kBase},
		{"unknown", tokenizer.O200kBase},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := modelToEncoding(tt.model); got != tt.expected {
				t.Errorf("modelToEncoding(%q) = %v, want %v", tt.model, got, tt.expected)
			}
		})
	}
}

func TestCodecCaching(t *testing.T) {
	est := NewEstimator()

	if _, err := est.EstimateTokens("gpt-4o", "warm the cache"); err != nil {
		t.Fatalf("EstimateTokens() error = %v", err)
	}

	est.cacheMu.RLock()
	_, cached := est.codecCache[tokenizer.O200kBase]
	est.cacheMu.RUnlock()
	if !cached {
		t.Error("expected o200k_base codec to be cached after first use")
	}
}
