package promptinject

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

func TestInject_NoToolsIsPassthrough(t *testing.T) {
	req := bridgetypes.ClientRequest{Model: "gpt-4o", System: "be nice"}

	enriched, _, ok, err := Inject(req)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, req, enriched)
}

func TestInject_WithToolsAddsTriggerAndCatalog(t *testing.T) {
	req := bridgetypes.ClientRequest{
		Model:  "gpt-4o",
		System: "be nice",
		Tools: []bridgetypes.ToolDef{
			{
				Name:        "get_weather",
				Description: "fetch weather",
				InputSchema: bridgetypes.ToolInputSchema{
					Properties: map[string]bridgetypes.ToolParamSchema{
						"city": {Type: "string", Description: "city name"},
					},
					Required: []string{"city"},
				},
			},
		},
	}

	enriched, delim, ok, err := Inject(req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, delim.TCStart)
	assert.Contains(t, enriched.System, delim.TCStart)
	assert.Contains(t, enriched.System, "get_weather")
	assert.Contains(t, enriched.System, "fetch weather")
	assert.True(t, strings.HasSuffix(enriched.System, "be nice"))
	assert.Nil(t, enriched.SystemBlock)
}

func TestInject_EscapesAngleBracketsInToolText(t *testing.T) {
	req := bridgetypes.ClientRequest{
		Tools: []bridgetypes.ToolDef{
			{Name: "x", Description: "a <b> c"},
		},
	}

	enriched, _, ok, err := Inject(req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, enriched.System, "a &lt;b&gt; c")
	assert.NotContains(t, enriched.System, "a <b> c")
}

func TestInject_EachCallGeneratesDistinctTrigger(t *testing.T) {
	req := bridgetypes.ClientRequest{Tools: []bridgetypes.ToolDef{{Name: "t"}}}

	_, d1, _, err := Inject(req)
	require.NoError(t, err)
	_, d2, _, err := Inject(req)
	require.NoError(t, err)

	assert.NotEqual(t, d1.TCStart, d2.TCStart)
}
