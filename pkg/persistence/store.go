package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/nbctl/pkg/models"
)

const (
	notebooksBucket = "notebooks"
	triggersBucket  = "triggers"
)

func templatesBucket(workspaceID string) string {
	return "templates/" + workspaceID
}

// now is replaced in tests.
var now = func() time.Time {
	return time.Now().UTC()
}

type storePersistence struct {
	store     Store
	notebooks *notebookRepository
	templates *templateRepository
	triggers  *triggerRepository
}

// New builds the repositories on top of a key/value store.
func New(store Store) Persistence {
	return &storePersistence{
		store:     store,
		notebooks: &notebookRepository{store: store},
		templates: &templateRepository{store: store},
		triggers:  &triggerRepository{store: store},
	}
}

func (p *storePersistence) Notebooks() NotebookRepository { return p.notebooks }

func (p *storePersistence) Templates() TemplateRepository { return p.templates }

func (p *storePersistence) Triggers() TriggerRepository { return p.triggers }

func (p *storePersistence) HealthCheck(ctx context.Context) error {
	return p.store.HealthCheck(ctx)
}

func (p *storePersistence) Close(ctx context.Context) error {
	return p.store.Close(ctx)
}

func get[T any](ctx context.Context, store Store, op, bucket, key string, notFound error) (*T, error) {
	data, err := store.Get(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewRecordError(op, bucket, key, notFound)
		}

		return nil, NewRecordError(op, bucket, key, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, NewRecordError(op, bucket, key, fmt.Errorf("failed to unmarshal: %w", err))
	}

	return &value, nil
}

func values[T any](ctx context.Context, store Store, bucket string) ([]*T, error) {
	raw, err := store.Values(ctx, bucket)
	if err != nil {
		return nil, NewRecordError("List", bucket, "*", err)
	}

	items := make([]*T, 0, len(raw))

	for _, data := range raw {
		var value T
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, NewRecordError("List", bucket, "*", fmt.Errorf("failed to unmarshal: %w", err))
		}

		items = append(items, &value)
	}

	return items, nil
}

type notebookRepository struct {
	store Store
}

func (r *notebookRepository) ByID(ctx context.Context, id string) (*models.Notebook, error) {
	return get[models.Notebook](ctx, r.store, "ByID", notebooksBucket, id, ErrNotebookNotFound)
}

func (r *notebookRepository) Save(ctx context.Context, notebook *models.Notebook) error {
	timestamp := now()
	if notebook.CreatedAt.IsZero() {
		notebook.CreatedAt = timestamp
	}

	notebook.UpdatedAt = timestamp
	notebook.Revision++

	data, err := json.Marshal(notebook)
	if err != nil {
		return NewRecordError("Save", notebooksBucket, notebook.ID, err)
	}

	if err := r.store.Put(ctx, notebooksBucket, notebook.ID, data); err != nil {
		return NewRecordError("Save", notebooksBucket, notebook.ID, err)
	}

	return nil
}

type templateRepository struct {
	store Store
}

func (r *templateRepository) List(ctx context.Context, workspaceID string) ([]*models.Template, error) {
	templates, err := values[models.Template](ctx, r.store, templatesBucket(workspaceID))
	if err != nil {
		return nil, err
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})

	return templates, nil
}

func (r *templateRepository) ByName(ctx context.Context, workspaceID, name string) (*models.Template, error) {
	return get[models.Template](ctx, r.store, "ByName", templatesBucket(workspaceID), name, ErrTemplateNotFound)
}

func (r *templateRepository) Create(ctx context.Context, workspaceID string, template *models.Template) error {
	bucket := templatesBucket(workspaceID)

	timestamp := now()
	template.CreatedAt = timestamp
	template.UpdatedAt = timestamp

	data, err := json.Marshal(template)
	if err != nil {
		return NewRecordError("Create", bucket, template.Name, err)
	}

	stored, err := r.store.PutIfAbsent(ctx, bucket, template.Name, data)
	if err != nil {
		return NewRecordError("Create", bucket, template.Name, err)
	}

	if !stored {
		return NewRecordError("Create", bucket, template.Name, ErrTemplateAlreadyExists)
	}

	return nil
}

func (r *templateRepository) Update(ctx context.Context, workspaceID string, template *models.Template) error {
	bucket := templatesBucket(workspaceID)

	if _, err := r.ByName(ctx, workspaceID, template.Name); err != nil {
		return err
	}

	template.UpdatedAt = now()

	data, err := json.Marshal(template)
	if err != nil {
		return NewRecordError("Update", bucket, template.Name, err)
	}

	if err := r.store.Put(ctx, bucket, template.Name, data); err != nil {
		return NewRecordError("Update", bucket, template.Name, err)
	}

	return nil
}

func (r *templateRepository) Delete(ctx context.Context, workspaceID, name string) error {
	bucket := templatesBucket(workspaceID)

	deleted, err := r.store.Delete(ctx, bucket, name)
	if err != nil {
		return NewRecordError("Delete", bucket, name, err)
	}

	if !deleted {
		return NewRecordError("Delete", bucket, name, ErrTemplateNotFound)
	}

	return nil
}

type triggerRepository struct {
	store Store
}

func (r *triggerRepository) List(ctx context.Context, workspaceID string) ([]*TriggerRecord, error) {
	all, err := values[TriggerRecord](ctx, r.store, triggersBucket)
	if err != nil {
		return nil, err
	}

	triggers := make([]*TriggerRecord, 0, len(all))

	for _, trigger := range all {
		if trigger.WorkspaceID == workspaceID {
			triggers = append(triggers, trigger)
		}
	}

	return triggers, nil
}

func (r *triggerRepository) ByID(ctx context.Context, id string) (*TriggerRecord, error) {
	return get[TriggerRecord](ctx, r.store, "ByID", triggersBucket, id, ErrTriggerNotFound)
}

func (r *triggerRepository) Save(ctx context.Context, trigger *TriggerRecord) error {
	timestamp := now()
	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = timestamp
	}

	trigger.UpdatedAt = timestamp

	data, err := json.Marshal(trigger)
	if err != nil {
		return NewRecordError("Save", triggersBucket, trigger.ID, err)
	}

	if err := r.store.Put(ctx, triggersBucket, trigger.ID, data); err != nil {
		return NewRecordError("Save", triggersBucket, trigger.ID, err)
	}

	return nil
}

func (r *triggerRepository) Delete(ctx context.Context, id string) error {
	deleted, err := r.store.Delete(ctx, triggersBucket, id)
	if err != nil {
		return NewRecordError("Delete", triggersBucket, id, err)
	}

	if !deleted {
		return NewRecordError("Delete", triggersBucket, id, ErrTriggerNotFound)
	}

	return nil
}
