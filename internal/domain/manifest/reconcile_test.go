package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

func TestExtractWaybills(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{
			name: "top-level packages",
			body: `{"packages":[{"waybill":"WB1","order":"O1"}]}`,
			want: map[string]string{"O1": "WB1"},
		},
		{
			name: "nested shipments fallback",
			body: `{"response":{"shipments":[{"awb":"WB2","reference":"O2"}]}}`,
			want: map[string]string{"O2": "WB2"},
		},
		{
			name: "nested packages with alternate keys",
			body: `{"response":{"packages":[{"wbn":"WB3","order_id":"O3"}]}}`,
			want: map[string]string{"O3": "WB3"},
		},
		{
			name: "empty packages fall back to shipments",
			body: `{"packages":[],"shipments":[{"waybill":"WB4","order":"O4"}]}`,
			want: map[string]string{"O4": "WB4"},
		},
		{
			name: "top-level packages shadow nested packages",
			body: `{"packages":[{"order":"O5"}],"response":{"packages":[{"waybill":"WB5","order":"O5"}]}}`,
			want: map[string]string{},
		},
		{
			name: "malformed and incomplete entries are skipped",
			body: `{"packages":["junk",42,{"waybill":"","order":"O6"},{"waybill":"WB7"},{"waybill":"WB8","order":"O8"}]}`,
			want: map[string]string{"O8": "WB8"},
		},
		{
			name: "numeric values are stringified",
			body: `{"packages":[{"waybill":1234567890123,"order":42}]}`,
			want: map[string]string{"42": "1234567890123"},
		},
		{
			name: "unknown shape yields empty mapping",
			body: `{"status":"ok","rmk":"done"}`,
			want: map[string]string{},
		},
		{
			name: "packages of the wrong type are ignored",
			body: `{"packages":"none","shipments":[{"waybill":"WB9","order":"O9"}]}`,
			want: map[string]string{"O9": "WB9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractWaybills(decodeResponse(t, tt.body))
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("nil response", func(t *testing.T) {
		assert.Empty(t, ExtractWaybills(nil))
	})
}

func TestReconcile(t *testing.T) {
	mapping := map[string]string{"O1": "WB1"}
	assignments := Reconcile(mapping, []string{"O1", " ", "O2"})

	require.Len(t, assignments, 2)
	assert.Equal(t, "O1", assignments[0].OrderID)
	assert.True(t, assignments[0].Assigned())
	assert.Equal(t, "WB1", *assignments[0].Waybill)
	assert.Equal(t, "O2", assignments[1].OrderID)
	assert.False(t, assignments[1].Assigned())
}

func TestOrderRef(t *testing.T) {
	assert.Equal(t, "O1", OrderRef(map[string]any{"order": "O1", "reference": "R"}))
	assert.Equal(t, "R", OrderRef(map[string]any{"order": "", "reference": "R"}))
	assert.Equal(t, "", OrderRef(map[string]any{}))
}
