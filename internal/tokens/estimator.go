// Package tokens estimates token usage with tiktoken for terminal events whose
// upstream provider omitted usage figures.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tailfin-ai/tailfin/internal/core/ports"
)

// Estimator counts tokens using tiktoken encodings.
type Estimator struct {
	// codecCache caches tokenizer codecs by encoding name
	codecCache map[tokenizer.Encoding]tokenizer.Codec
	cacheMu    sync.RWMutex
}

var _ ports.TokenEstimator = (*Estimator)(nil)

// NewEstimator creates a new token estimator.
func NewEstimator() *Estimator {
	return &Estimator{
		codecCache: make(map[tokenizer.Encoding]tokenizer.Codec),
	}
}

// EstimateTokens returns the token count of text under the encoding that best
// matches model. Unknown models fall back to o200k_base.
func (e *Estimator) EstimateTokens(model, text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	codec, err := e.getCodec(modelToEncoding(model))
	if err != nil {
		return 0, err
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("failed to encode text: %w", err)
	}

	return len(ids), nil
}

func (e *Estimator) getCodec(encoding tokenizer.Encoding) (tokenizer.Codec, error) {
	e.cacheMu.RLock()
	if cached, ok := e.codecCache[encoding]; ok {
		e.cacheMu.RUnlock()
		return cached, nil
	}
	e.cacheMu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}

	e.cacheMu.Lock()
	e.codecCache[encoding] = codec
	e.cacheMu.Unlock()

	return codec, nil
}

// modelToEncoding maps model names to tiktoken encodings.
//
// Encoding reference:
// - O200kBase: GPT-5, GPT-4.1, GPT-4o, O-series and newer models
// - Cl100kBase: GPT-4, GPT-3.5-turbo
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-4") && !strings.HasPrefix(model, "gpt-4o") && !strings.HasPrefix(model, "gpt-4.1"):
		return tokenizer.Cl100kBase
	case strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase
	default:
		// Newer and unknown models use o200k_base
		return tokenizer.O200kBase
	}
}
