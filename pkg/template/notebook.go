package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/nbctl/pkg/models"
)

const titlePlaceholder = "__nbctl_title_placeholder__"


// FromNotebook generates template source that evaluates back to nb. The
// title becomes the optional "title" argument; every other value is literal.
func FromNotebook(nb models.NewNotebook) (string, error) {
	title := nb.Title
	nb.Title = titlePlaceholder

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(nb); err != nil {
		return "", fmt.Errorf("failed to encode notebook: %w", err)
	}

	body := escapeBraces(buf.Bytes())
	body = strings.Replace(
		body,
		strconv.Quote(titlePlaceholder),
		fmt.Sprintf(`{{ argOr "title" %s | toJSON }}`, strconv.Quote(title)),
		1,
	)

	return body, nil
}

// escapeBraces rewrites braces inside JSON strings as unicode escapes so the
// encoded document holds no template delimiters. Structural braces are never
// adjacent in indented output.
func escapeBraces(encoded []byte) string {
	var out strings.Builder
	out.Grow(len(encoded))

	inString, escaped := false, false

	for _, b := range encoded {
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case inString && b == '{':
			out.WriteString(`\u007b`)
			continue
		case inString && b == '}':
			out.WriteString(`\u007d`)
			continue
		}

		out.WriteByte(b)
	}

	return out.String()
}

// Comment returns a template comment that produces no output.
func Comment(text string) string {
	text = strings.ReplaceAll(text, "*/", "* /")

	return "{{- /* " + text + " */ -}}\n"
}

// Starter is the body written by templates init.
const Starter = `{{- /* Starter notebook template. Arguments: service (required), title, hours */ -}}
{
  "title": {{ argOr "title" (printf "Incident review: %s" (arg "service")) | toJSON }},
  "time_range": {
    "from": {{ ago (printf "%vh" (argOr "hours" 1)) }},
    "to": {{ unixNow }}
  },
  "cells": [
    {
      "id": "summary-heading",
      "type": "heading",
      "heading_type": "h2",
      "content": "Summary"
    },
    {
      "id": "summary-text",
      "type": "text",
      "content": {{ printf "Investigating %s with %d data sources available." (arg "service") (len (ext "PROXY_DATA_SOURCES")) | toJSON }}
    }
  ],
  "labels": [
    {
      "key": "service",
      "value": {{ arg "service" | toJSON }}
    }
  ]
}
`
