package derror

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Encode writes e as {"kind": ..., "data": ...}. A nil error encodes as JSON null.
func Encode(e ChatError) ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return json.Marshal(envelope{Kind: e.Kind(), Data: data})
}

// Decode is the inverse of Encode. JSON null decodes to a nil ChatError.
func Decode(b []byte) (ChatError, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode chat error envelope: %w", err)
	}

	var target ChatError
	switch env.Kind {
	case KindConfig:
		target = &ConfigError{}
	case KindAuth:
		target = &AuthError{}
	case KindRateLimit:
		target = &RateLimitError{}
	case KindAPI:
		target = &APIError{}
	case KindNetwork:
		target = &NetworkError{}
	case KindUnknown:
		target = &UnknownError{}
	default:
		return nil, fmt.Errorf("decode chat error: unknown kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	return target, nil
}
