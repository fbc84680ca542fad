package renderconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandGenerators_FilterTemplate(t *testing.T) {
	document := map[string]any{
		"filters": map[string]any{},
		"filters-generators": []any{
			map[string]any{
				"parameters": map[string]any{
					"threshold": []any{int64(1), int64(5), int64(10)},
				},
				"template": map[string]any{
					"name":   "as-@threshold",
					"type":   "arbiter_saturation",
					"icon":   "🚰",
					"suffix": "as@threshold",
					"ratio":  "@raw(threshold)",
				},
			},
		},
	}

	require.NoError(t, ExpandGenerators(document))

	filters, ok := document["filters"].(map[string]any)
	require.True(t, ok)
	require.Len(t, filters, 3)

	expected := map[string]struct {
		suffix string
		ratio  int64
	}{
		"as-1":  {suffix: "as1", ratio: 1},
		"as-5":  {suffix: "as5", ratio: 5},
		"as-10": {suffix: "as10", ratio: 10},
	}
	for name, want := range expected {
		entry, ok := filters[name].(map[string]any)
		require.True(t, ok, "filter %q should exist", name)
		assert.Equal(t, "arbiter_saturation", entry["type"])
		assert.Equal(t, want.suffix, entry["suffix"])
		assert.Equal(t, want.ratio, entry["ratio"], "@raw should keep the value's type")
		_, hasName := entry["name"]
		assert.False(t, hasName, "template name should not survive into the entry")
	}

	_, hasGenerators := document["filters-generators"]
	assert.False(t, hasGenerators, "generator block should be removed after expansion")
}

func TestExpandGenerators_LengthMismatch(t *testing.T) {
	document := map[string]any{
		"filters": map[string]any{},
		"filters-generators": []any{
			map[string]any{
				"parameters": map[string]any{
					"threshold": []any{int64(1), int64(5), int64(10)},
					"ratio":     []any{int64(2), int64(4)},
				},
				"template": map[string]any{
					"name":   "as-@threshold",
					"type":   "arbiter_saturation",
					"icon":   "🚰",
					"suffix": "as@threshold",
				},
			},
		},
	}

	err := ExpandGenerators(document)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerator)

	var genErr *GeneratorError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "filters", genErr.Collection)
	assert.Equal(t, "as-@threshold", genErr.Template)
	assert.Contains(t, err.Error(), "different numbers of values")
}

func TestExpandGenerators_NoParameters(t *testing.T) {
	document := map[string]any{
		"tasks": map[string]any{},
		"tasks-generators": []any{
			map[string]any{
				"parameters": map[string]any{},
				"template": map[string]any{
					"name": "static",
					"type": "video",
					"icon": "🎬",
				},
			},
		},
	}

	err := ExpandGenerators(document)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerator)
	assert.Contains(t, err.Error(), "has no parameters")
}

func TestExpandGenerators_NameCollision(t *testing.T) {
	document := map[string]any{
		"filters": map[string]any{
			"as-1": map[string]any{
				"type":   "arbiter_saturation",
				"icon":   "🚰",
				"suffix": "as1",
			},
		},
		"filters-generators": []any{
			map[string]any{
				"parameters": map[string]any{
					"threshold": []any{int64(1)},
				},
				"template": map[string]any{
					"name":   "as-@threshold",
					"type":   "arbiter_saturation",
					"icon":   "🚰",
					"suffix": "as@threshold",
				},
			},
		},
	}

	err := ExpandGenerators(document)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `created an entry whose name ("as-1") already exists`)
}

func TestExpandGenerators_PlaceholderPrecedence(t *testing.T) {
	document := map[string]any{
		"filters": map[string]any{},
		"filters-generators": []any{
			map[string]any{
				"parameters": map[string]any{
					"threshold":   []any{int64(1)},
					"threshold10": []any{int64(99)},
				},
				"template": map[string]any{
					"name":   "hp-@threshold10-@threshold",
					"type":   "hot_pixels",
					"icon":   "🌶",
					"suffix": "hp@threshold10",
					"note":   "limit is @threshold10",
				},
			},
		},
	}

	require.NoError(t, ExpandGenerators(document))

	filters := document["filters"].(map[string]any)
	entry, ok := filters["hp-99-1"].(map[string]any)
	require.True(t, ok, "longer parameter name should win, got keys %v", filters)
	assert.Equal(t, "hp99", entry["suffix"])
	assert.Equal(t, "limit is 99", entry["note"])
}

func TestExpandGenerators_RawIsDeepCopied(t *testing.T) {
	weights := []any{0.5, 1.5}
	document := map[string]any{
		"tasks": map[string]any{},
		"tasks-generators": []any{
			map[string]any{
				"parameters": map[string]any{
					"index": []any{int64(0), int64(1)},
					"gamma": []any{weights, weights},
				},
				"template": map[string]any{
					"name":    "ct-@index",
					"weights": "@raw(gamma)",
					"type":    "colourtime",
					"icon":    "🎨",
				},
			},
		},
	}

	require.NoError(t, ExpandGenerators(document))

	tasks := document["tasks"].(map[string]any)
	require.Len(t, tasks, 2)

	first := tasks["ct-0"].(map[string]any)["weights"].([]any)
	second := tasks["ct-1"].(map[string]any)["weights"].([]any)
	first[0] = 99.0
	assert.Equal(t, 0.5, second[0], "each generated entry should own its copy")
	assert.Equal(t, 0.5, weights[0], "the parameter value should be untouched")
}

func TestExpandGenerators_JobsAppended(t *testing.T) {
	document := map[string]any{
		"jobs": []any{
			map[string]any{"name": "existing", "begin": "0", "end": "1"},
		},
		"jobs-generators": []any{
			map[string]any{
				"parameters": map[string]any{
					"recording": []any{"dvs-a", "dvs-b"},
				},
				"template": map[string]any{
					"name":    "@recording",
					"begin":   "00:00:00.000000",
					"end":     "00:00:01.000000",
					"filters": []any{"default"},
					"tasks":   []any{"video-real-time"},
				},
			},
		},
	}

	require.NoError(t, ExpandGenerators(document))

	jobs, ok := document["jobs"].([]any)
	require.True(t, ok)
	require.Len(t, jobs, 3)

	assert.Equal(t, "existing", jobs[0].(map[string]any)["name"])
	assert.Equal(t, "dvs-a", jobs[1].(map[string]any)["name"], "generated jobs keep their name field")
	assert.Equal(t, "dvs-b", jobs[2].(map[string]any)["name"])

	_, hasGenerators := document["jobs-generators"]
	assert.False(t, hasGenerators)
}

func TestExpandGenerators_RecursesIntoNestedValues(t *testing.T) {
	document := map[string]any{
		"tasks": map[string]any{},
		"tasks-generators": []any{
			map[string]any{
				"parameters": map[string]any{
					"scale": []any{int64(4)},
				},
				"template": map[string]any{
					"name": "er-@scale",
					"type": "event_rate",
					"icon": "🎢",
					"flags": []any{
						"--scale=@scale",
						map[string]any{"long": "@raw(scale)"},
					},
					"nested": map[string]any{
						"label": "x@scale",
					},
				},
			},
		},
	}

	require.NoError(t, ExpandGenerators(document))

	tasks := document["tasks"].(map[string]any)
	entry := tasks["er-4"].(map[string]any)

	flags := entry["flags"].([]any)
	assert.Equal(t, "--scale=4", flags[0])
	assert.Equal(t, int64(4), flags[1].(map[string]any)["long"])
	assert.Equal(t, "x4", entry["nested"].(map[string]any)["label"])
}

func TestExpandGenerators_AllKindsInOrder(t *testing.T) {
	document := map[string]any{
		"filters": map[string]any{},
		"tasks":   map[string]any{},
		"jobs":    []any{},
		"filters-generators": []any{
			map[string]any{
				"parameters": map[string]any{"t": []any{int64(7)}},
				"template": map[string]any{
					"name": "f-@t", "type": "hot_pixels", "icon": "🌶", "suffix": "",
				},
			},
		},
		"tasks-generators": []any{
			map[string]any{
				"parameters": map[string]any{"t": []any{int64(7)}},
				"template": map[string]any{
					"name": "t-@t", "type": "video", "icon": "🎬",
				},
			},
		},
		"jobs-generators": []any{
			map[string]any{
				"parameters": map[string]any{"t": []any{int64(7)}},
				"template": map[string]any{
					"name": "j-@t", "begin": "0", "end": "1",
					"filters": []any{"f-7"}, "tasks": []any{"t-7"},
				},
			},
		},
	}

	require.NoError(t, ExpandGenerators(document))

	assert.Contains(t, document["filters"].(map[string]any), "f-7")
	assert.Contains(t, document["tasks"].(map[string]any), "t-7")
	require.Len(t, document["jobs"].([]any), 1)
	for _, key := range []string{"filters-generators", "tasks-generators", "jobs-generators"} {
		_, present := document[key]
		assert.False(t, present, "%s should be removed", key)
	}
}

func TestExpandGenerators_FloatPlaceholderFormatting(t *testing.T) {
	document := map[string]any{
		"filters": map[string]any{},
		"filters-generators": []any{
			map[string]any{
				"parameters": map[string]any{
					"ratio": []any{1.0, 2.5},
				},
				"template": map[string]any{
					"name":   "hp-@ratio",
					"type":   "hot_pixels",
					"icon":   "🌶",
					"suffix": "hp@ratio",
				},
			},
		},
	}

	require.NoError(t, ExpandGenerators(document))

	filters := document["filters"].(map[string]any)
	assert.Contains(t, filters, "hp-1", "integral floats should not carry a trailing .0")
	assert.Contains(t, filters, "hp-2.5")
}

func TestExpandGenerators_BadShapes(t *testing.T) {
	tests := []struct {
		name     string
		document map[string]any
		contains string
	}{
		{
			name: "generator block is not a sequence",
			document: map[string]any{
				"filters-generators": map[string]any{"oops": true},
			},
			contains: "not a sequence of generators",
		},
		{
			name: "generator entry is not a mapping",
			document: map[string]any{
				"filters-generators": []any{"oops"},
			},
			contains: "not a mapping",
		},
		{
			name: "parameter is not a sequence",
			document: map[string]any{
				"filters-generators": []any{
					map[string]any{
						"parameters": map[string]any{"t": "scalar"},
						"template":   map[string]any{"name": "f-@t"},
					},
				},
			},
			contains: `parameter "t" is not a sequence`,
		},
		{
			name: "filter template without a name",
			document: map[string]any{
				"filters-generators": []any{
					map[string]any{
						"parameters": map[string]any{"t": []any{int64(1)}},
						"template":   map[string]any{"type": "hot_pixels"},
					},
				},
			},
			contains: "template has no name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExpandGenerators(tt.document)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGenerator))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
