// Package jq applies jq expressions to command results.
package jq

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// Normalize converts v into the plain maps, slices and scalars gojq
// operates on, using its JSON encoding.
func Normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	return out, nil
}

// Query runs expr against data and collects every emitted value.
func Query(data any, expr string) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	input, err := Normalize(data)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("jq: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

// Filter runs expr against data and returns the results as indented JSON.
// A single result is emitted bare; multiple results become an array.
func Filter(data any, expr string) ([]byte, error) {
	results, err := Query(data, expr)
	if err != nil {
		return nil, err
	}

	var out any = results
	switch len(results) {
	case 0:
		out = []any{}
	case 1:
		out = results[0]
	}
	return json.MarshalIndent(out, "", "  ")
}
