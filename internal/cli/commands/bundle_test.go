package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/storyscript/storyc/internal/bundle"
	"github.com/storyscript/storyc/internal/cli/testutil"
	"github.com/storyscript/storyc/internal/state"
)

var projectStories = map[string]string{
	"main.story":     "import 'lib/util.story' as util\nalpine echo text:(random value)\n",
	"lib/util.story": "http get\n",
}

func TestBundleCommand_JSON(t *testing.T) {
	dir := testutil.SetupTestProject(t, projectStories, "")

	out, _, err := runIn(t, dir, NewBundleCommand(), "main.story")
	require.NoError(t, err)

	var result bundle.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"main.story"}, result.Entrypoint)
	assert.Equal(t, []string{"alpine", "http", "random"}, result.Services)
	require.Contains(t, result.Stories, "lib/util.story")
	assert.Equal(t, map[string]string{"util": "lib/util.story"}, result.Stories["main.story"].Modules)
}

func TestBundleCommand_Directory(t *testing.T) {
	dir := testutil.SetupTestProject(t, projectStories, "")

	out, _, err := runIn(t, dir, NewBundleCommand())
	require.NoError(t, err)

	var result bundle.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"lib/util.story", "main.story"}, result.Entrypoint)
}

func TestBundleCommand_YAML(t *testing.T) {
	dir := testutil.SetupTestProject(t, projectStories, "output: yaml\n")

	out, _, err := runIn(t, dir, NewBundleCommand(), "lib/util.story")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, []any{"http"}, result["services"])
}

func TestBundleCommand_NotFound(t *testing.T) {
	dir := testutil.SetupTestProject(t, nil, "")

	_, _, err := runIn(t, dir, NewBundleCommand(), "gone.story")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `File "gone.story" not found`)
}

func TestBundleCommand_RecordsBuilds(t *testing.T) {
	dir := testutil.SetupTestProject(t, projectStories, "state_path: .storyscript/state.db\n")

	_, _, err := runIn(t, dir, NewBundleCommand(), "main.story")
	require.NoError(t, err)

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(filepath.Join(dir, ".storyscript", "state.db")))
	defer func() { _ = store.Close() }()

	latest, err := store.GetLatestBuild()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, []string{"main.story"}, latest.Entrypoint)
	assert.Equal(t, []string{"alpine", "http", "random"}, latest.Services)

	hashes, err := store.GetStoryHashes(latest.ID)
	require.NoError(t, err)
	assert.Equal(t, state.HashSource(projectStories["lib/util.story"]), hashes["lib/util.story"])

	changed, err := store.ChangedStories(projectStories)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestBundleCommand_RecordsFailures(t *testing.T) {
	dir := testutil.SetupTestProject(t, map[string]string{"bad.story": "a = \n"}, "state_path: state.db\n")

	_, _, err := runIn(t, dir, NewBundleCommand(), "bad.story")
	require.Error(t, err)

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(filepath.Join(dir, "state.db")))
	defer func() { _ = store.Close() }()

	builds, err := store.ListBuilds(10)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, state.BuildStatusFailed, builds[0].Status)
	assert.Contains(t, builds[0].Error, "bad.story")
}
