package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// ItemsKey holds a tool result that was a bare JSON array.
const ItemsKey = "items"

// TextKey holds a tool result that was plain, non-JSON text.
const TextKey = "text"

// decodeEnvelope decodes a raw HTTP tool response. A response shaped as
// {"content": [{"type": "text", "text": "..."}]} is unwrapped first.
func decodeEnvelope(data []byte) (domain.RawEntity, error) {
	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Content) > 0 {
		first := envelope.Content[0]
		if first.Type == "text" {
			if envelope.IsError {
				return nil, fmt.Errorf("tool error: %s", first.Text)
			}
			return decodeText(first.Text), nil
		}
	}
	return decodeJSON(data)
}

// decodeText parses text as JSON, falling back to {"text": text}.
func decodeText(text string) domain.RawEntity {
	raw, err := decodeJSON([]byte(text))
	if err != nil {
		return domain.RawEntity{TextKey: strings.TrimSpace(text)}
	}
	return raw
}

func decodeJSON(data []byte) (domain.RawEntity, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode tool result: %w", err)
	}
	switch val := v.(type) {
	case map[string]any:
		return domain.RawEntity(val), nil
	case []any:
		return domain.RawEntity{ItemsKey: val}, nil
	case nil:
		return domain.RawEntity{}, nil
	default:
		return domain.RawEntity{TextKey: fmt.Sprint(val)}, nil
	}
}
