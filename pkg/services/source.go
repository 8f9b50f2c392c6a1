package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/nbctl/pkg/identifier"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/template"
)

// SourceKind tells where template text comes from.
type SourceKind int

const (
	SourceUploaded SourceKind = iota + 1
	SourceLocalFile
	SourceRemoteURL
)

func (k SourceKind) String() string {
	switch k {
	case SourceUploaded:
		return "uploaded"
	case SourceLocalFile:
		return "local_file"
	case SourceRemoteURL:
		return "remote_url"
	default:
		return "unknown"
	}
}

// TemplateSource is a resolved template reference. Exactly one of Name,
// Path and URL is set, matching Kind.
type TemplateSource struct {
	Kind SourceKind
	Name string
	Path string
	URL  string
}

func (s TemplateSource) String() string {
	switch s.Kind {
	case SourceUploaded:
		return s.Name
	case SourceLocalFile:
		return s.Path
	default:
		return s.URL
	}
}

// Insecure reports whether the source is fetched over plain http.
func (s TemplateSource) Insecure() bool {
	return s.Kind == SourceRemoteURL && strings.HasPrefix(strings.ToLower(s.URL), "http://")
}

// sourceStrategy inspects a reference. ok=false means not applicable; a
// non-nil error is a definitive failure.
type sourceStrategy func(token, templatesBaseURL string) (source TemplateSource, ok bool, err error)

var sourceStrategies = []struct {
	name    string
	resolve sourceStrategy
}{
	{name: "name", resolve: byName},
	{name: "template_url", resolve: byTemplateURL},
	{name: "remote_url", resolve: byRemoteURL},
	{name: "local_file", resolve: byLocalFile},
}

// ResolveTemplateSource classifies a template reference without any I/O.
// templatesBaseURL is the URL prefix of uploaded templates in the workspace.
func ResolveTemplateSource(token, templatesBaseURL string) (TemplateSource, error) {
	token = strings.TrimSpace(token)

	for _, strategy := range sourceStrategies {
		source, ok, err := strategy.resolve(token, templatesBaseURL)
		if err != nil {
			return TemplateSource{}, err
		}

		if ok {
			return source, nil
		}
	}

	return TemplateSource{}, fmt.Errorf("%w: %q", ErrUnsupportedTemplateFormat, token)
}

func byName(token, _ string) (TemplateSource, bool, error) {
	if !identifier.IsName(token) {
		return TemplateSource{}, false, nil
	}

	return TemplateSource{Kind: SourceUploaded, Name: token}, true, nil
}

func byTemplateURL(token, templatesBaseURL string) (TemplateSource, bool, error) {
	if templatesBaseURL == "" {
		return TemplateSource{}, false, nil
	}

	name, ok := identifier.NameFromURL(token, templatesBaseURL)
	if !ok {
		return TemplateSource{}, false, nil
	}

	return TemplateSource{Kind: SourceUploaded, Name: name}, true, nil
}

func byRemoteURL(token, _ string) (TemplateSource, bool, error) {
	parsed, err := url.Parse(token)
	if err != nil || parsed.Host == "" {
		return TemplateSource{}, false, nil
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return TemplateSource{Kind: SourceRemoteURL, URL: token}, true, nil
	default:
		return TemplateSource{}, false, nil
	}
}

func byLocalFile(token, _ string) (TemplateSource, bool, error) {
	if filepath.Ext(token) != template.Extension {
		return TemplateSource{}, false, fmt.Errorf(
			"%w: %q is not a template name, a URL or a %s file", ErrUnsupportedTemplateFormat, token, template.Extension,
		)
	}

	return TemplateSource{Kind: SourceLocalFile, Path: token}, true, nil
}

// TemplateFetcher retrieves template text from the service or the web.
type TemplateFetcher interface {
	TemplateByName(ctx context.Context, name string) (*models.Template, error)
	FetchTemplateURL(ctx context.Context, templateURL string) (string, error)
	TemplatesURL() string
}

// LoadedTemplate is template text together with where it came from.
type LoadedTemplate struct {
	Source   TemplateSource
	Body     string
	Template *models.Template // only for SourceUploaded
}

// Loader resolves template references and loads their text.
type Loader struct {
	fetcher  TemplateFetcher
	readFile func(name string) ([]byte, error)
	logger   *slog.Logger
}

func NewLoader(fetcher TemplateFetcher, logger *slog.Logger) *Loader {
	return &Loader{
		fetcher:  fetcher,
		readFile: os.ReadFile,
		logger:   logger.With("module", "template_loader"),
	}
}

// WithReadFile replaces the function used to read local template files.
func (l *Loader) WithReadFile(readFile func(name string) ([]byte, error)) *Loader {
	clone := *l
	clone.readFile = readFile

	return &clone
}

// Resolve classifies token against the workspace templates URL.
func (l *Loader) Resolve(token string) (TemplateSource, error) {
	return ResolveTemplateSource(token, l.fetcher.TemplatesURL())
}

// Load reads the text of source with exactly one fetch.
func (l *Loader) Load(ctx context.Context, source TemplateSource) (*LoadedTemplate, error) {
	logger := l.logger.With("kind", source.Kind.String(), "source", source.String())

	switch source.Kind {
	case SourceUploaded:
		logger.DebugContext(ctx, "fetching uploaded template")

		tmpl, err := l.fetcher.TemplateByName(ctx, source.Name)
		if err != nil {
			return nil, err
		}

		return &LoadedTemplate{Source: source, Body: tmpl.Body, Template: tmpl}, nil
	case SourceRemoteURL:
		if source.Insecure() {
			logger.WarnContext(ctx, "fetching template over plain http, use https instead")
		}

		body, err := l.fetcher.FetchTemplateURL(ctx, source.URL)
		if err != nil {
			return nil, err
		}

		return &LoadedTemplate{Source: source, Body: body}, nil
	case SourceLocalFile:
		logger.DebugContext(ctx, "reading local template")

		body, err := l.readFile(source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template file %s: %w", source.Path, err)
		}

		return &LoadedTemplate{Source: source, Body: string(body)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source kind %d", ErrUnsupportedTemplateFormat, source.Kind)
	}
}

// LoadReference resolves token and loads the template it names.
func (l *Loader) LoadReference(ctx context.Context, token string) (*LoadedTemplate, error) {
	source, err := l.Resolve(token)
	if err != nil {
		return nil, err
	}

	return l.Load(ctx, source)
}
