// Package arguments parses template arguments given on the command line.
//
// Two surface syntaxes are accepted for a bulk argument blob: a JSON object,
// or a list of name=value (or name:value) pairs separated by ',' or ';'. The
// repeated --arg name=value flag form decodes each value as JSON when possible
// so that numbers, booleans and objects keep their type.
package arguments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgumentSyntax is returned when input matches none of the accepted forms.
var ErrInvalidArgumentSyntax = errors.New("invalid argument syntax")

// Map holds argument values keyed by argument name.
type Map map[string]any

// SyntaxError reports the token that could not be parsed.
type SyntaxError struct {
	Token  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %q: %s", ErrInvalidArgumentSyntax, e.Token, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return ErrInvalidArgumentSyntax
}

// ParseBlob parses a bulk argument blob. A blob that decodes as a JSON object
// is used verbatim; anything else is read as delimited pairs whose values are
// kept as strings.
func ParseBlob(blob string) (Map, error) {
	trimmed := strings.TrimSpace(blob)

	var object map[string]any
	if err := json.Unmarshal([]byte(trimmed), &object); err == nil && object != nil {
		return Map(object), nil
	}

	args := make(Map)

	tokens := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ',' || r == ';'
	})

	for _, token := range tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}

		index := strings.IndexAny(token, ":=")
		if index < 0 {
			return nil, &SyntaxError{Token: token, Reason: "expected name=value or name:value"}
		}

		name := strings.TrimSpace(token[:index])
		if name == "" {
			return nil, &SyntaxError{Token: token, Reason: "argument name is empty"}
		}

		args[name] = token[index+1:]
	}

	return args, nil
}

// ParseFlag parses a single name=value flag. The value is decoded as JSON
// when it parses and kept as a literal string otherwise.
func ParseFlag(token string) (string, any, error) {
	name, raw, found := strings.Cut(token, "=")
	if !found {
		return "", nil, &SyntaxError{Token: token, Reason: "must be in the form name=value"}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, &SyntaxError{Token: token, Reason: "argument name is empty"}
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return name, raw, nil
	}

	return name, value, nil
}

// FromFlags parses repeated name=value flags. Later flags win.
func FromFlags(tokens []string) (Map, error) {
	args := make(Map, len(tokens))

	for _, token := range tokens {
		name, value, err := ParseFlag(token)
		if err != nil {
			return nil, err
		}

		args[name] = value
	}

	return args, nil
}

// Merge returns a new map holding base overlaid with every override.
func Merge(base Map, overrides ...Map) Map {
	merged := make(Map, len(base))
	for k, v := range base {
		merged[k] = v
	}

	for _, override := range overrides {
		for k, v := range override {
			merged[k] = v
		}
	}

	return merged
}
