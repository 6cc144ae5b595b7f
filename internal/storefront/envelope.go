package storefront

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope keys the storefront wraps documents in.
var (
	productKeys  = []string{"product", "data"}
	categoryKeys = []string{"categories", "data"}
	discountKeys = []string{"discounts", "discount", "data"}
	cartKeys     = []string{"cart", "items", "data"}
)

const maxEnvelopeDepth = 3

// decodeEnvelope decodes either the bare document or the document wrapped under
// one of keys. Wrapping may nest, as in {"data": {"items": [...]}}.
func decodeEnvelope(raw []byte, dst any, keys ...string) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fmt.Errorf("empty response body")
	}
	for depth := 0; depth < maxEnvelopeDepth; depth++ {
		inner, ok := unwrap(raw, keys)
		if !ok {
			break
		}
		raw = inner
	}
	return json.Unmarshal(raw, dst)
}

func unwrap(raw []byte, keys []string) ([]byte, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	for _, key := range keys {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			continue
		}
		if inner[0] == '{' || inner[0] == '[' {
			return inner, true
		}
	}
	return nil, false
}

// errorMessage extracts a message from a JSON error body, if any.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	switch v := body.Error.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return ""
}
