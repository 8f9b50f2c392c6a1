// Package persistence provides the storage layer of the sandbox notebook service.
package persistence

import (
	"context"

	"github.com/dukex/nbctl/pkg/models"
)

// Store is a bucketed key/value store. Get returns ErrNotFound for a
// missing key; Delete reports whether the key existed.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, value []byte) error
	PutIfAbsent(ctx context.Context, bucket, key string, value []byte) (bool, error)
	Delete(ctx context.Context, bucket, key string) (bool, error)
	Values(ctx context.Context, bucket string) ([][]byte, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type Persistence interface {
	Notebooks() NotebookRepository
	Templates() TemplateRepository
	Triggers() TriggerRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

type NotebookRepository interface {
	ByID(ctx context.Context, id string) (*models.Notebook, error)
	Save(ctx context.Context, notebook *models.Notebook) error
}

type TemplateRepository interface {
	List(ctx context.Context, workspaceID string) ([]*models.Template, error)
	ByName(ctx context.Context, workspaceID, name string) (*models.Template, error)
	Create(ctx context.Context, workspaceID string, template *models.Template) error
	Update(ctx context.Context, workspaceID string, template *models.Template) error
	Delete(ctx context.Context, workspaceID, name string) error
}

// TriggerRecord is a trigger as stored by the sandbox, including the
// fields that are never returned by reads.
type TriggerRecord struct {
	models.Trigger

	WorkspaceID string `json:"workspace_id"`
	SecretKey   string `json:"secret_key"`
}

type TriggerRepository interface {
	List(ctx context.Context, workspaceID string) ([]*TriggerRecord, error)
	ByID(ctx context.Context, id string) (*TriggerRecord, error)
	Save(ctx context.Context, trigger *TriggerRecord) error
	Delete(ctx context.Context, id string) error
}
