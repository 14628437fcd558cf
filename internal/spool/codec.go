package spool

import (
	"encoding/json"
	"fmt"
)

// EncodeFields serializes one row's fields for storage in a single text
// column. JSON keeps the encoding backend-agnostic and newline-safe
// (fields may contain raw newlines).
func EncodeFields(fields []string) (string, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("spool: encode row: %w", err)
	}
	return string(b), nil
}

func DecodeFields(data string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("spool: decode row: %w", err)
	}
	return out, nil
}
