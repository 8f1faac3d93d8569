package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ansfeed/pkg/adapter"
	"github.com/leapstack-labs/ansfeed/pkg/core"

	_ "github.com/leapstack-labs/ansfeed/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/ansfeed/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/ansfeed/pkg/adapters/sqlite"
)

func TestApplyTargetDefaults(t *testing.T) {
	tests := []struct {
		name   string
		target core.TargetConfig
		want   core.TargetConfig
	}{
		{
			name:   "empty target becomes sqlite",
			target: core.TargetConfig{},
			want:   core.TargetConfig{Type: "sqlite", Schema: "main", Database: DefaultDatabase},
		},
		{
			name:   "postgres gets host and port",
			target: core.TargetConfig{Type: "Postgres", Database: "ans"},
			want:   core.TargetConfig{Type: "postgres", Database: "ans", Host: "localhost", Port: 5432},
		},
		{
			name:   "explicit values are kept",
			target: core.TargetConfig{Type: "duckdb", Database: "ans.duckdb", Schema: "curated"},
			want:   core.TargetConfig{Type: "duckdb", Database: "ans.duckdb", Schema: "curated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.target
			ApplyTargetDefaults(&got)
			assert.Equal(t, tt.want, got)
		})
	}

	ApplyTargetDefaults(nil)
}

func TestValidateTarget(t *testing.T) {
	require.NoError(t, ValidateTarget(&core.TargetConfig{Type: "sqlite"}))
	require.NoError(t, ValidateTarget(&core.TargetConfig{Type: "postgres", Database: "ans"}))

	assert.Error(t, ValidateTarget(nil))
	assert.Error(t, ValidateTarget(&core.TargetConfig{}))
	assert.Error(t, ValidateTarget(&core.TargetConfig{Type: "postgres"}))

	err := ValidateTarget(&core.TargetConfig{Type: "oracle"})
	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
}
