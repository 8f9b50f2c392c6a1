// Package sandbox provides a self-contained notebook service that speaks the
// same HTTP API as the hosted one. It backs local development and tests.
package sandbox

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/nbctl/pkg/api"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/persistence"
	"github.com/dukex/nbctl/pkg/services"
	"github.com/dukex/nbctl/pkg/template"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/google/uuid"
)

const (
	webhookEndpoint = "webhook"
	shutdownTimeout = 5 * time.Second
)

// TemplateFetcher downloads the body of a template bound to a trigger by URL.
type TemplateFetcher interface {
	FetchTemplateURL(ctx context.Context, templateURL string) (string, error)
}

// Options configures a Server.
type Options struct {
	// Token, when set, is required as a bearer token on every route but
	// trigger invocation.
	Token string
	// PublicURL is the base of the notebook URLs handed out by the server.
	PublicURL   string `validate:"required,url"`
	DataSources []models.ProxyDataSource
	Fetcher     TemplateFetcher
}

type Server struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	expander    *services.Expander
	fetcher     TemplateFetcher
	validate    *validator.Validate
	token       string
	publicURL   string
	dataSources []models.ProxyDataSource
	newID       func() string
	newSecret   func() string
}

func NewServer(logger *slog.Logger, persistence persistence.Persistence, opts Options) (*Server, error) {
	validate := models.NewValidator()

	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid sandbox options: %w", err)
	}

	publicURL := api.NormalizeBaseURL(opts.PublicURL)

	fetcher := opts.Fetcher
	if fetcher == nil {
		client, err := api.New(publicURL, api.WithLogger(logger))
		if err != nil {
			return nil, err
		}

		fetcher = client
	}

	expander, err := services.NewExpander(nil, nil, template.NewEngine(), logger)
	if err != nil {
		return nil, err
	}

	dataSources := opts.DataSources
	if dataSources == nil {
		dataSources = []models.ProxyDataSource{}
	}

	return &Server{
		logger:      logger.With("module", "sandbox"),
		persistence: persistence,
		expander:    expander,
		fetcher:     fetcher,
		validate:    validate,
		token:       opts.Token,
		publicURL:   publicURL,
		dataSources: dataSources,
		newID:       newID,
		newSecret:   newSecret,
	}, nil
}

func (s *Server) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("nbctl sandbox")
	})

	app.Get("/notebook/:id", s.GetNotebook)

	// Invocation is authorized by the trigger itself and is registered
	// ahead of the token check.
	app.Post("/api/triggers/:id/:secret", s.InvokeTrigger)

	a := app.Group("/api", s.requireToken)
	a.Get("/notebooks/:id", s.GetNotebook)
	a.Get("/triggers/:id", s.GetTrigger)
	a.Delete("/triggers/:id", s.DeleteTrigger)

	w := a.Group("/workspaces/:workspace")
	w.Post("/notebooks", s.CreateNotebook)
	w.Get("/data_sources", s.ListDataSources)

	w.Get("/templates", s.ListTemplates)
	w.Post("/templates", s.CreateTemplate)
	w.Get("/templates/:name", s.GetTemplate)
	w.Patch("/templates/:name", s.UpdateTemplate)
	w.Delete("/templates/:name", s.DeleteTemplate)

	w.Get("/triggers", s.ListTriggers)
	w.Post("/triggers", s.CreateTrigger)

	app.Get("/health", s.HealthCheck)

	return app
}

// Start serves the sandbox on addr until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context, addr string) error {
	app := s.App()

	stop := context.AfterFunc(ctx, func() {
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.logger.Error("failed to shut down sandbox", "error", err)
		}
	})
	defer stop()

	s.logger.InfoContext(ctx, "starting sandbox", "addr", addr, "public_url", s.publicURL, "token_required", s.token != "")

	return app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// NotebookURL returns the browser URL of a notebook served by the sandbox.
func (s *Server) NotebookURL(id string) string {
	return s.publicURL + "notebook/" + id
}

func (s *Server) requireToken(c fiber.Ctx) error {
	if s.token == "" {
		return c.Next()
	}

	header := c.Get(fiber.HeaderAuthorization)

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return unauthorized(c)
	}

	return c.Next()
}

func newID() string {
	id := uuid.New()

	return base64.RawURLEncoding.EncodeToString(id[:])
}

func newSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
