package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	applog "github.com/PvGGit/pv-retrieval/internal/log"
	"github.com/PvGGit/pv-retrieval/internal/report"
	"github.com/PvGGit/pv-retrieval/internal/retrieval"
)

func testApp(t *testing.T) (*cli.App, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	logger, err := applog.NewWithOutput(&out)
	require.NoError(t, err)

	cliApp := New(logger, "1.0.0", "abc1234")
	cliApp.Writer = &out
	cliApp.ErrWriter = &out

	return cliApp, &out
}

func TestRunValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		err  error
	}{
		{"no arguments", nil, retrieval.ErrNothingToDo},
		{"target list", []string{"--retrieve-pvcs", "target"}, retrieval.ErrTargetContextRequired},
		{"both lists", []string{"-r", "both"}, retrieval.ErrTargetContextRequired},
		{"mapping file", []string{"-r", "source", "--mapping-file", "m.txt"}, retrieval.ErrTargetContextRequired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cliApp, _ := testApp(t)
			err := cliApp.Run(append([]string{appName}, tt.args...))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRunInvalidFlagValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"side", []string{"--retrieve-pvcs", "all"}},
		{"report format", []string{"--target-context", "b", "--report-format", "xml"}},
		{"log level", []string{"--log-level", "loud"}},
		{"log format", []string{"--log-format", "xml"}},
		{"positional argument", []string{"-t", "b", "extra"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cliApp, _ := testApp(t)
			assert.Error(t, cliApp.Run(append([]string{appName}, tt.args...)))
		})
	}
}

//nolint:paralleltest // sets environment variables
func TestRunEnvVars(t *testing.T) {
	t.Setenv("PV_RETRIEVAL_RETRIEVE_PVCS", "target")

	cliApp, _ := testApp(t)
	err := cliApp.Run([]string{appName})
	assert.ErrorIs(t, err, retrieval.ErrTargetContextRequired)
}

func TestCompletionCommand(t *testing.T) {
	t.Parallel()

	cliApp, out := testApp(t)
	require.NoError(t, cliApp.Run([]string{appName, commandCompletion, flagBash}))
	assert.Contains(t, out.String(), "PROG=pv-retrieval")
	assert.Contains(t, out.String(), "_cli_bash_autocomplete")

	cliApp, out = testApp(t)
	require.NoError(t, cliApp.Run([]string{appName, commandCompletion, flagZsh}))
	assert.Contains(t, out.String(), "#compdef $PROG")
}

func TestFlagValueCompletions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		flag     string
		expected []string
	}{
		{"--retrieve-pvcs", report.Sides},
		{"-r", report.Sides},
		{"--report-format", report.Formats},
		{"--log-level", applog.Levels},
		{"-f", applog.Formats},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.flag, func(t *testing.T) {
			t.Parallel()

			values, ok := flagValueCompletions(context.Background(), tt.flag, "", "")
			assert.True(t, ok)
			assert.Equal(t, tt.expected, values)
		})
	}

	_, ok := flagValueCompletions(context.Background(), "--mapping-file", "", "")
	assert.False(t, ok)
}

func TestPreviousArg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "--source-context",
		previousArg([]string{appName, "--source-context", generateCompletionFlag}))
	assert.Equal(t, "", previousArg([]string{appName, "--source-context"}))
	assert.Equal(t, "", previousArg([]string{generateCompletionFlag}))
}

func TestEnvVars(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"PV_RETRIEVAL_SOURCE_PVC_LIST"}, envVars(FlagSourcePVCList))
	assert.Equal(t, []string{"PV_RETRIEVAL_NO_PROGRESS_BAR"}, envVars(FlagNoProgressBar))
}
