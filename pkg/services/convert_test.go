package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dukex/nbctl/pkg/api"
	"github.com/dukex/nbctl/pkg/identifier"
	"github.com/dukex/nbctl/pkg/mocks"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/dukex/nbctl/pkg/services"
	"github.com/dukex/nbctl/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testNotebookID = "NbNbNbNbNbNbNbNbNbNbNb"

func sampleNotebook() *models.Notebook {
	return &models.Notebook{
		ID:        testNotebookID,
		Title:     "Checkout latency spike",
		TimeRange: models.TimeRange{From: 10, To: 20},
		Cells: []models.Cell{
			{ID: "h", Type: models.CellTypeHeading, HeadingType: "h1", Content: "Summary"},
			{ID: "img-file", Type: models.CellTypeImage, FileID: "file-1"},
			{ID: "img-url", Type: models.CellTypeImage, URL: "https://cdn.example.com/graph.png", FileID: "file-2"},
			{ID: "code", Type: models.CellTypeCode, Content: `SELECT "{{ not a template }}"`},
		},
		Labels: []models.Label{{Key: "service", Value: "checkout"}},
	}
}

func TestRewriteImageURLs(t *testing.T) {
	t.Parallel()

	nb := sampleNotebook()

	once := services.RewriteImageURLs(nb, "https://notebooks.test")
	assert.Equal(t, "https://notebooks.test/api/notebooks/"+testNotebookID+"/files/file-1", once.Cells[1].URL)
	assert.Empty(t, once.Cells[1].FileID)
	assert.Equal(t, "https://cdn.example.com/graph.png", once.Cells[2].URL)
	assert.Equal(t, "file-2", once.Cells[2].FileID)

	// input is left untouched
	assert.Empty(t, nb.Cells[1].URL)

	twice := services.RewriteImageURLs(once, "https://notebooks.test/")
	assert.Equal(t, once.Cells, twice.Cells)
}

func TestConvertNotebook(t *testing.T) {
	t.Parallel()

	conversion, err := services.ConvertNotebook(sampleNotebook(), "https://notebooks.test/")
	require.NoError(t, err)

	assert.Equal(t, "checkout-latency-spike", conversion.SuggestedName)
	assert.Equal(t, "https://notebooks.test/notebook/"+testNotebookID, conversion.NotebookURL)
	assert.Contains(t, conversion.Body, "Generated from notebook: https://notebooks.test/notebook/"+testNotebookID)
	require.NoError(t, identifier.ValidateName(conversion.SuggestedName))
}

func TestConvertNotebook_UnusableTitle(t *testing.T) {
	t.Parallel()

	nb := sampleNotebook()
	nb.Title = "!!!"

	conversion, err := services.ConvertNotebook(nb, "https://notebooks.test/")
	require.NoError(t, err)
	assert.Empty(t, conversion.SuggestedName)
}

func TestConvertThenExpand_RoundTrip(t *testing.T) {
	t.Parallel()

	nb := sampleNotebook()
	nb.Cells = append(nb.Cells,
		models.Cell{ID: "json", Type: models.CellTypeCode, Content: `{"a":{}}`},
		models.Cell{ID: "lone", Type: models.CellTypeText, Content: "x{}}y"},
	)

	conversion, err := services.ConvertNotebook(nb, "https://notebooks.test/")
	require.NoError(t, err)

	client := mocks.NewMockAPI(false)
	loader := services.NewLoader(client, testLogger())
	expander, err := services.NewExpander(loader, client, template.NewEngine(), testLogger())
	require.NoError(t, err)

	expanded, _, err := expander.Render(context.Background(), conversion.Body, nil, false)
	require.NoError(t, err)

	assert.Equal(t, nb.Title, expanded.Title)
	require.Len(t, expanded.Cells, len(nb.Cells))

	for i := range nb.Cells {
		assert.Equal(t, nb.Cells[i].Type, expanded.Cells[i].Type)
		assert.Equal(t, nb.Cells[i].Content, expanded.Cells[i].Content)
	}

	assert.Equal(t, nb.Labels, expanded.Labels)
	assert.Equal(t, "https://notebooks.test/api/notebooks/"+testNotebookID+"/files/file-1", expanded.Cells[1].URL)
}

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(true)
	client.On("Notebook", mock.Anything, testNotebookID).Return(sampleNotebook(), nil).Once()

	converter := services.NewConverter(client, testLogger())

	conversion, err := converter.Convert(context.Background(), "https://notebooks.test/workspace/ws1/notebook/"+testNotebookID)
	require.NoError(t, err)
	assert.Equal(t, testNotebookID, conversion.NotebookID)

	client.AssertExpectations(t)
}

func TestConverter_ConvertErrors(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockAPI(true)
	client.On("Notebook", mock.Anything, testNotebookID).
		Return(nil, &api.NetworkError{Status: 404, Err: api.ErrNotebookNotFound}).Once()

	converter := services.NewConverter(client, testLogger())

	_, err := converter.Convert(context.Background(), "short")
	require.ErrorIs(t, err, identifier.ErrInvalidIdentifier)

	_, err = converter.Convert(context.Background(), testNotebookID)
	require.ErrorIs(t, err, api.ErrNotebookNotFound)

	var opErr *services.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "convert", opErr.Op)
}

func TestConverter_ConvertJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(sampleNotebook())
	require.NoError(t, err)

	converter := services.NewConverter(mocks.NewMockAPI(false), testLogger())

	conversion, err := converter.ConvertJSON(data)
	require.NoError(t, err)
	assert.Equal(t, "checkout-latency-spike", conversion.SuggestedName)

	_, err = converter.ConvertJSON([]byte("not json"))
	require.Error(t, err)
}
