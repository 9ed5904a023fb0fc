package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyscript/storyc/internal/cli/config"
	"github.com/storyscript/storyc/internal/testutil"
)

// runIn executes cmd from dir with the configuration of dir loaded and
// usage output silenced, as the root command does before running a
// subcommand.
func runIn(t *testing.T, dir string, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(dir)
	t.Cleanup(config.ResetConfig)

	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetContext(context.WithValue(context.Background(), config.LoggerKey(), testutil.NewTestLogger(t)))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewBundleCommand(), "bundle [path]", nil},
		{NewParseCommand(), "parse [path]", []string{"raw"}},
		{NewLexCommand(), "lex [path]", nil},
		{NewServicesCommand(), "services [path]", nil},
		{NewGraphCommand(), "graph [path]", []string{"dot", "deps"}},
		{NewCheckCommand(), "check [path]", []string{"jobs"}},
		{NewWatchCommand(), "watch [dir]", nil},
		{NewREPLCommand(), "repl", nil},
		{NewBuildsCommand(), "builds [id]", []string{"limit"}},
		{NewInitCommand(), "init [directory]", []string{"force", "example"}},
		{NewDoctorCommand(), "doctor [path]", nil},
		{NewVersionCommand("test"), "version", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "storyscript v1.2.3")
}

func TestStoryPath(t *testing.T) {
	assert.Equal(t, ".", storyPath(nil))
	assert.Equal(t, "app", storyPath([]string{"app"}))
}
