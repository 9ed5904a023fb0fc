package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyscript/storyc/internal/bundle"
	"github.com/storyscript/storyc/internal/cli/config"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			args:      []string{},
			wantFiles: []string{"storyscript.yaml", "main.story", ".gitignore"},
		},
		{
			name:      "init example",
			args:      []string{"--example"},
			wantFiles: []string{"storyscript.yaml", "main.story", "lib/greeting.story", "lib/notify.story"},
		},
		{
			name:      "init new directory",
			args:      []string{"project"},
			wantFiles: []string{"project/storyscript.yaml", "project/main.story"},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "storyscript.yaml"), []byte("existing"), 0o600)
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "storyscript.yaml"), []byte("existing"), 0o600)
			},
			args:      []string{"--force"},
			wantFiles: []string{"storyscript.yaml", "main.story"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Storyscript project initialized!")

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, filepath.FromSlash(f)))
				assert.False(t, os.IsNotExist(err), "expected file %q to exist", f)
			}
		})
	}
}

func TestInitCreatesValidConfig(t *testing.T) {
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Chdir(tmpDir)
	t.Cleanup(config.ResetConfig)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--example"})
	require.NoError(t, cmd.Execute())

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, ".story", cfg.Extension)
	assert.Equal(t, filepath.Join(tmpDir, ".storyscript", "state.db"), cfg.StatePath)
}

func TestInitTemplatesCompile(t *testing.T) {
	for _, template := range []string{"minimal", "example"} {
		t.Run(template, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, copyTemplate(template, dir, false))

			build, err := bundle.FromPath(context.Background(), dir, bundle.Options{})
			require.NoError(t, err)
			require.NoError(t, build.Check(context.Background()))
			assert.Contains(t, build.Services(), "alpine")
		})
	}
}

func TestGroupTemplateFiles(t *testing.T) {
	files, err := listTemplateFiles("example")
	require.NoError(t, err)

	groups := groupTemplateFiles(files, ".story")
	assert.ElementsMatch(t, []string{".gitignore", "storyscript.yaml"}, groups["config"])
	assert.ElementsMatch(t, []string{"lib/greeting.story", "lib/notify.story", "main.story"}, groups["stories"])
}
