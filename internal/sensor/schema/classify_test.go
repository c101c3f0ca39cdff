package schema

import (
	"testing"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want core.Schema
	}{
		{"hour fields", `{"hourtemp":24.1,"hourhum":55,"hourgas":420,"timestamp":"2025-08-11T14:00:00"}`, core.SchemaHourAvg},
		{"hour averages with ranges", `{"averages":{"temp":24},"hourly_ranges":{},"trends":{}}`, core.SchemaHourAvg},
		{"minute fields", `{"mintemp":24.3,"minhum":55,"mingas":410,"timestamp":"2025-08-11T14:05:00"}`, core.SchemaMinAvg},
		{"minute averages compat", `{"averages":{"temp":24},"calculatedAt":"2025-08-11T14:05:00"}`, core.SchemaMinAvg},
		{"minute trend", `{"data":{"mintemp":24,"minhum":50,"mingas":400},"trend":"up"}`, core.SchemaMinTrend},
		{"raw list short keys", `[{"timestamp":"2025-08-11T14:05:01","temp":24,"hum":50,"gas":400}]`, core.SchemaRawList},
		{"raw list long keys", `[{"timestamp":"2025-08-11T14:05:01","temperature":24,"humidity":50,"gas":400,"id":1}]`, core.SchemaRawList},
		{"raw list missing gas", `[{"timestamp":"2025-08-11T14:05:01","temp":24,"hum":50}]`, core.SchemaNone},
		{"empty list", `[]`, core.SchemaNone},
		{"averages without stamp", `{"averages":{"temp":24}}`, core.SchemaNone},
		{"unrelated", `{"hello":"world"}`, core.SchemaNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Classify(parsed))
		})
	}
}

func TestClassify_NonJSONValues(t *testing.T) {
	assert.Equal(t, core.SchemaNone, Classify(nil))
	assert.Equal(t, core.SchemaNone, Classify("text"))
	assert.Equal(t, core.SchemaNone, Classify([]any{"a"}))
}

func TestParse(t *testing.T) {
	t.Run("json lines", func(t *testing.T) {
		v, err := Parse("{\"a\":1}\n\n{\"a\":2}\nnot json\n")
		require.NoError(t, err)
		assert.Len(t, v, 2)
	})

	t.Run("embedded object", func(t *testing.T) {
		v, err := Parse(`prefix {"mintemp":1,"minhum":2,"mingas":3} suffix`)
		require.NoError(t, err)
		assert.Equal(t, core.SchemaMinAvg, Classify(v))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Parse("no json here")
		assert.ErrorIs(t, err, ErrUnparsable)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Parse("   ")
		assert.ErrorIs(t, err, ErrUnparsable)
	})
}
