package database

import (
	"testing"

	"quad/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		env      string
		destruct bool
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{name: "hybrid dev", mode: "hybrid", env: "development", wantSQL: true, wantAuto: true},
		{name: "hybrid prod", mode: "hybrid", env: "production", wantSQL: true, wantAuto: false},
		{name: "hybrid staging", mode: "hybrid", env: "staging", wantSQL: true, wantAuto: false},
		{name: "empty defaults to hybrid", mode: "", env: "development", wantSQL: true, wantAuto: true},
		{name: "sql only", mode: "sql", env: "production", wantSQL: true, wantAuto: false},
		{name: "auto dev", mode: "auto", env: "development", wantSQL: false, wantAuto: true},
		{name: "auto prod refused", mode: "auto", env: "production", wantErr: true},
		{name: "auto prod with override", mode: "auto", env: "production", destruct: true, wantSQL: false, wantAuto: true},
		{name: "unknown mode", mode: "yolo", env: "development", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				DBSchemaMode:                  tt.mode,
				Env:                           tt.env,
				DBAutoMigrateAllowDestructive: tt.destruct,
			}
			runSQL, runAuto, err := schemaPolicy(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestMigrationsRegisteredInOrder(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)

	for i := 1; i < len(ms); i++ {
		assert.Greater(t, ms[i].Version, ms[i-1].Version, "migrations must be sorted by version")
	}

	for _, m := range ms {
		assert.NotEmpty(t, m.UpScript, "migration %s has empty up script", m.String())
		assert.NotEmpty(t, m.DownScript, "migration %s has empty down script", m.String())
	}
}
