package arguments_test

import (
	"testing"

	"github.com/dukex/nbctl/pkg/arguments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlob_JSONObject(t *testing.T) {
	t.Parallel()

	args, err := arguments.ParseBlob(`{"count": 3, "enabled": true, "tags": ["a", "b"], "owner": {"team": "sre"}, "name": "db"}`)
	require.NoError(t, err)

	assert.Equal(t, arguments.Map{
		"count":   float64(3),
		"enabled": true,
		"tags":    []any{"a", "b"},
		"owner":   map[string]any{"team": "sre"},
		"name":    "db",
	}, args)
}

func TestParseBlob_Delimited(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		blob     string
		expected arguments.Map
	}{
		{name: "mixed separators", blob: "a=1,b:2", expected: arguments.Map{"a": "1", "b": "2"}},
		{name: "environment", blob: "env=prod,region=us-east", expected: arguments.Map{"env": "prod", "region": "us-east"}},
		{name: "semicolons and spaces", blob: " env = prod ; region=us-east ", expected: arguments.Map{"env": " prod ", "region": "us-east"}},
		{name: "first separator splits", blob: "url=https://example.com", expected: arguments.Map{"url": "https://example.com"}},
		{name: "last key wins", blob: "a=1,a=2", expected: arguments.Map{"a": "2"}},
		{name: "trailing delimiter", blob: "a=1,", expected: arguments.Map{"a": "1"}},
		{name: "empty value", blob: "a=", expected: arguments.Map{"a": ""}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			args, err := arguments.ParseBlob(testCase.blob)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, args)
		})
	}
}

func TestParseBlob_Invalid(t *testing.T) {
	t.Parallel()

	for _, blob := range []string{"a=1,b", "justaword", "=value", `["not", "an", "object"]`} {
		_, err := arguments.ParseBlob(blob)
		require.ErrorIs(t, err, arguments.ErrInvalidArgumentSyntax, blob)
	}
}

func TestParseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		name  string
		value any
	}{
		{token: "count=3", name: "count", value: float64(3)},
		{token: "label=foo", name: "label", value: "foo"},
		{token: "enabled=true", name: "enabled", value: true},
		{token: `owner={"team":"sre"}`, name: "owner", value: map[string]any{"team": "sre"}},
		{token: "expr=a=b", name: "expr", value: "a=b"},
		{token: `quoted="3"`, name: "quoted", value: "3"},
		{token: "empty=", name: "empty", value: ""},
	}

	for _, testCase := range tests {
		name, value, err := arguments.ParseFlag(testCase.token)
		require.NoError(t, err, testCase.token)
		assert.Equal(t, testCase.name, name)
		assert.Equal(t, testCase.value, value, testCase.token)
	}

	_, _, err := arguments.ParseFlag("novalue")
	require.ErrorIs(t, err, arguments.ErrInvalidArgumentSyntax)
}

func TestFromFlagsAndMerge(t *testing.T) {
	t.Parallel()

	flags, err := arguments.FromFlags([]string{"count=3", "label=foo", "count=4"})
	require.NoError(t, err)
	assert.Equal(t, arguments.Map{"count": float64(4), "label": "foo"}, flags)

	merged := arguments.Merge(arguments.Map{"label": "bar", "region": "eu"}, flags)
	assert.Equal(t, arguments.Map{"count": float64(4), "label": "foo", "region": "eu"}, merged)

	_, err = arguments.FromFlags([]string{"ok=1", "broken"})
	require.ErrorIs(t, err, arguments.ErrInvalidArgumentSyntax)
}
