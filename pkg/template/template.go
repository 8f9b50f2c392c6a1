// Package template evaluates notebook templates and generates templates from notebooks.
//
// A template is Go text/template source whose output is a notebook-creation
// JSON payload. Arguments are read with the arg and argOr functions, runtime
// variables provided by the caller with ext.
package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Extension is the file extension of local template files.
const Extension = ".tmpl"

var (
	ErrMissingArgument = errors.New("missing required argument")
	ErrUnknownVariable = errors.New("unknown runtime variable")
)

// MissingArgumentError is returned when a template reads an argument with
// arg and the caller did not provide it.
type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingArgument, e.Name)
}

func (e *MissingArgumentError) Unwrap() error {
	return ErrMissingArgument
}

// Env is the data a template is evaluated against.
type Env struct {
	Arguments map[string]any
	Runtime   map[string]any
}

// Engine evaluates template source.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// WithClock returns a copy of the engine that reads the time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Evaluate renders body against env and returns the trimmed output.
func (e *Engine) Evaluate(body string, env Env) ([]byte, error) {
	var missing *MissingArgumentError

	funcs := e.funcs(env, func(name string) error {
		if missing == nil {
			missing = &MissingArgumentError{Name: name}
		}

		return missing
	})

	tmpl, err := template.New("notebook").Option("missingkey=error").Funcs(funcs).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer

	if err := tmpl.Execute(&buf, env.Arguments); err != nil {
		if missing != nil {
			return nil, missing
		}

		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	return bytes.TrimSpace(buf.Bytes()), nil
}

func (e *Engine) funcs(env Env, onMissing func(name string) error) template.FuncMap {
	return template.FuncMap{
		"arg": func(name string) (any, error) {
			value, ok := env.Arguments[name]
			if !ok {
				return nil, onMissing(name)
			}

			return value, nil
		},
		"argOr": func(name string, fallback any) any {
			if value, ok := env.Arguments[name]; ok {
				return value
			}

			return fallback
		},
		"ext": func(name string) (any, error) {
			value, ok := env.Runtime[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
			}

			return value, nil
		},
		"toJSON": toJSON,
		"now": func() string {
			return e.now().UTC().Format(time.RFC3339)
		},
		"unixNow": func() int64 {
			return e.now().Unix()
		},
		"ago": func(duration string) (int64, error) {
			d, err := time.ParseDuration(duration)
			if err != nil {
				return 0, err
			}

			return e.now().Add(-d).Unix(), nil
		},
	}
}

// parseFuncs holds the function names a template may call, for parsing
// without evaluating.
func parseFuncs() template.FuncMap {
	return NewEngine().funcs(Env{}, func(string) error { return nil })
}

func toJSON(value any) (string, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(value); err != nil {
		return "", err
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}
