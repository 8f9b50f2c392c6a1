package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPersistenceTests exercises a persistence backend. newPersistence must
// return an empty, isolated instance on every call.
func RunPersistenceTests(t *testing.T, newPersistence func(t *testing.T) persistence.Persistence) {
	t.Helper()

	t.Run("notebooks", func(t *testing.T) {
		p := newPersistence(t)
		ctx := context.Background()

		_, err := p.Notebooks().ByID(ctx, "missing")
		require.ErrorIs(t, err, persistence.ErrNotebookNotFound)

		nb := CreateTestNotebook(WithImageFile("file-1"))
		require.NoError(t, p.Notebooks().Save(ctx, nb))
		assert.Equal(t, 1, nb.Revision)
		assert.False(t, nb.CreatedAt.IsZero())

		got, err := p.Notebooks().ByID(ctx, nb.ID)
		require.NoError(t, err)
		assert.Equal(t, nb.Title, got.Title)
		assert.Equal(t, nb.Cells, got.Cells)
	})

	t.Run("templates", func(t *testing.T) {
		p := newPersistence(t)
		ctx := context.Background()
		repo := p.Templates()

		require.NoError(t, repo.Create(ctx, "ws1", &models.Template{Name: "zeta", Body: "{}"}))
		require.NoError(t, repo.Create(ctx, "ws1", &models.Template{Name: "alpha", Body: "{}"}))
		require.NoError(t, repo.Create(ctx, "ws2", &models.Template{Name: "alpha", Body: "{}"}))

		err := repo.Create(ctx, "ws1", &models.Template{Name: "alpha", Body: "{}"})
		require.ErrorIs(t, err, persistence.ErrTemplateAlreadyExists)

		list, err := repo.List(ctx, "ws1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "alpha", list[0].Name)
		assert.Equal(t, "zeta", list[1].Name)

		empty, err := repo.List(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)

		tmpl, err := repo.ByName(ctx, "ws1", "alpha")
		require.NoError(t, err)

		tmpl.Description = "updated"
		require.NoError(t, repo.Update(ctx, "ws1", tmpl))

		tmpl, err = repo.ByName(ctx, "ws1", "alpha")
		require.NoError(t, err)
		assert.Equal(t, "updated", tmpl.Description)

		err = repo.Update(ctx, "ws1", &models.Template{Name: "missing"})
		require.ErrorIs(t, err, persistence.ErrTemplateNotFound)

		require.NoError(t, repo.Delete(ctx, "ws1", "alpha"))

		err = repo.Delete(ctx, "ws1", "alpha")
		require.ErrorIs(t, err, persistence.ErrTemplateNotFound)

		_, err = repo.ByName(ctx, "ws2", "alpha")
		require.NoError(t, err)
	})

	t.Run("triggers", func(t *testing.T) {
		p := newPersistence(t)
		ctx := context.Background()
		repo := p.Triggers()

		first := &persistence.TriggerRecord{Trigger: *CreateTestTrigger(), WorkspaceID: "ws1", SecretKey: "secret-1"}
		other := &persistence.TriggerRecord{Trigger: *CreateTestTrigger(), WorkspaceID: "ws2", SecretKey: "secret-2"}

		require.NoError(t, repo.Save(ctx, first))
		require.NoError(t, repo.Save(ctx, other))

		list, err := repo.List(ctx, "ws1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, "secret-1", list[0].SecretKey)
		assert.WithinDuration(t, time.Now(), list[0].UpdatedAt, time.Minute)

		require.NoError(t, repo.Delete(ctx, first.ID))

		_, err = repo.ByID(ctx, first.ID)
		require.ErrorIs(t, err, persistence.ErrTriggerNotFound)
		assert.True(t, persistence.IsNotFound(err))

		err = repo.Delete(ctx, first.ID)
		require.ErrorIs(t, err, persistence.ErrTriggerNotFound)
	})

	t.Run("health", func(t *testing.T) {
		p := newPersistence(t)

		require.NoError(t, p.HealthCheck(context.Background()))
		require.NoError(t, p.Close(context.Background()))
	})
}
