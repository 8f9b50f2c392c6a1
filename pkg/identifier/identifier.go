// Package identifier extracts notebook and trigger identifiers and validates
// template names from user supplied tokens, which may be bare values or full URLs.
package identifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	goslug "github.com/gosimple/slug"
)

// IDLength is the fixed length of notebook and trigger identifiers.
const IDLength = 22

// MaxNameLength is the longest template name accepted by the service.
const MaxNameLength = 63

var (
	// ErrInvalidIdentifier is returned when no trailing token matches the identifier pattern.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidName is returned when a template name fails validation.
	ErrInvalidName = errors.New("invalid name")
)

var (
	notebookIDPattern    = regexp.MustCompile(`([a-zA-Z0-9_-]{22})$`)
	triggerIDPattern     = regexp.MustCompile(`([a-zA-Z0-9_-]{22})(?:/webhook)?$`)
	triggerSecretPattern = regexp.MustCompile(`/api/triggers/([a-zA-Z0-9_-]{22})/([a-zA-Z0-9_-]+)$`)
	namePattern          = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	dashRuns             = regexp.MustCompile(`-{2,}`)
)

// Kind names the entity a token was expected to reference.
type Kind string

const (
	KindNotebook Kind = "notebook"
	KindTrigger  Kind = "trigger"
	KindTemplate Kind = "template"
)

// InvalidTokenError reports a token that could not be resolved.
type InvalidTokenError struct {
	Kind  Kind
	Token string
	Err   error
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("%v for %s: %q", e.Err, e.Kind, e.Token)
}

func (e *InvalidTokenError) Unwrap() error {
	return e.Err
}

// NotebookID returns the notebook identifier at the end of token.
func NotebookID(token string) (string, error) {
	return match(notebookIDPattern, KindNotebook, token)
}

// TriggerID returns the trigger identifier at the end of token. A trailing
// /webhook segment is stripped before matching.
func TriggerID(token string) (string, error) {
	return match(triggerIDPattern, KindTrigger, token)
}

// TriggerSecretURL recognises a webhook URL carrying a secret key,
// {base}/api/triggers/{id}/{secret}, and returns its parts.
func TriggerSecretURL(token string) (string, string, bool) {
	matches := triggerSecretPattern.FindStringSubmatch(clean(token))
	if matches == nil || matches[2] == "webhook" {
		return "", "", false
	}

	return matches[1], matches[2], true
}

// IsName reports whether name is a valid template name.
func IsName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidateName returns ErrInvalidName wrapped with the offending name.
func ValidateName(name string) error {
	if !IsName(name) {
		return &InvalidTokenError{Kind: KindTemplate, Token: name, Err: ErrInvalidName}
	}

	return nil
}

// NameFromURL strips the workspace templates prefix from token and returns
// the remaining template name when it is valid.
func NameFromURL(token, templatesBaseURL string) (string, bool) {
	if templatesBaseURL == "" {
		return "", false
	}

	prefix := strings.TrimSuffix(templatesBaseURL, "/") + "/"

	rest, found := strings.CutPrefix(strings.TrimSpace(token), prefix)
	if !found {
		return "", false
	}

	rest = strings.TrimSuffix(rest, "/")
	if !IsName(rest) {
		return "", false
	}

	return rest, true
}

// wordRune blanks symbols so the slugger cannot spell them out as words.
func wordRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return r
	}

	return ' '
}

// SlugName derives a template name from a notebook title. It returns an
// empty string when the title yields no usable name.
func SlugName(title string) string {
	slug := goslug.Make(strings.Map(wordRune, title))
	slug = dashRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > MaxNameLength {
		slug = strings.TrimRight(slug[:MaxNameLength], "-")
	}

	if !IsName(slug) {
		return ""
	}

	return slug
}

func match(pattern *regexp.Regexp, kind Kind, token string) (string, error) {
	matches := pattern.FindStringSubmatch(clean(token))
	if matches == nil {
		return "", &InvalidTokenError{Kind: kind, Token: token, Err: ErrInvalidIdentifier}
	}

	return matches[1], nil
}

func clean(token string) string {
	return strings.TrimSuffix(strings.TrimSpace(token), "/")
}
