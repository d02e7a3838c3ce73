package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobiAdawiya/andalan-solution/internal/config"
	"github.com/RobiAdawiya/andalan-solution/internal/registry"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name      string
		force     bool
		setupFunc func(string)
		wantErr   bool
	}{
		{
			name:      "fresh initialization",
			setupFunc: func(dir string) {},
		},
		{
			name:  "force overwrites existing files",
			force: true,
			setupFunc: func(dir string) {
				os.WriteFile(filepath.Join(dir, ConfigFile), []byte("old content"), 0644)
			},
		},
		{
			name: "existing files without force",
			setupFunc: func(dir string) {
				os.WriteFile(filepath.Join(dir, RegistryFile), []byte("old content"), 0644)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setupFunc(dir)

			var log bytes.Buffer
			err := Initialize(dir, tt.force, &log)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			cfg, err := config.Load(filepath.Join(dir, ConfigFile))
			require.NoError(t, err)
			assert.Equal(t, config.DefaultSafetyTag, cfg.Coordinator.SafetyTag)
			assert.Equal(t, "machine_01/cmd", cfg.Bus.Topics.MachineCommands)

			reg, err := registry.Load(filepath.Join(dir, RegistryFile))
			require.NoError(t, err)
			assert.Len(t, reg.Operators, 1)
			assert.Len(t, reg.Products, 1)

			if tt.force {
				assert.Contains(t, log.String(), "Overwriting existing floor.yml")
			}
		})
	}
}

func TestInitialize_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plant", "line1")
	require.NoError(t, Initialize(dir, false, &bytes.Buffer{}))
	assert.FileExists(t, filepath.Join(dir, ConfigFile))
}

func TestPrintSuccess(t *testing.T) {
	var buf bytes.Buffer
	PrintSuccess(&buf)
	assert.Contains(t, buf.String(), "floor registry import registry.yml")
}
