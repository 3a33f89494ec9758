package git

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedFillsEmptyOutput(t *testing.T) {
	res := Failed("  ", ErrCommandTimeout)
	assert.False(t, res.Success)
	assert.Equal(t, ErrCommandTimeout.Error(), res.Output)

	res = Failed("fatal: bad", ErrCommandTimeout)
	assert.Equal(t, "fatal: bad", res.Output)
}

func TestExecRunnerRejectsInvalidCommand(t *testing.T) {
	runner := NewExecRunner(t.TempDir(), ExecConfig{})

	res := runner.Run(context.Background(), NewCommand("cherry-pick").Rev("--abort"))

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrInvalidArgument)
	assert.NotEmpty(t, res.Output)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	runner := NewExecRunner(t.TempDir(), ExecConfig{Binary: "stagehand-no-such-git-binary"})

	res := runner.Run(context.Background(), NewCommand("status"))

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrGitNotFound)
}

func TestExecRunnerTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	// "sleep 5" stands in for a hung git process
	runner := NewExecRunner(t.TempDir(), ExecConfig{
		Binary:  "sleep",
		Timeout: 50 * time.Millisecond,
	})

	start := time.Now()
	res := runner.Run(context.Background(), NewCommand("5"))

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrCommandTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecRunnerRunsGit(t *testing.T) {
	dir := testRepo(t)
	runner := NewExecRunner(dir, ExecConfig{})
	assert.Equal(t, dir, runner.Dir())

	res := runner.Run(context.Background(), NewCommand("rev-parse").Flag("--is-inside-work-tree"))
	require.True(t, res.Success, res.Output)
	assert.Equal(t, "true", strings.TrimSpace(res.Output))
	assert.NoError(t, res.Err)

	res = runner.Run(context.Background(), NewCommand("rev-parse").Flag("--verify").Rev("HEAD"))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Output)
	assert.Error(t, res.Err)
}

func TestExecRunnerPathsAreLiteral(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "a.txt", "a\n")
	createFile(t, dir, "*.txt", "star\n")
	gitCmd(t, dir, "add", ".")

	// a configured environment replaces the defaults but not literal paths
	runner := NewExecRunner(dir, ExecConfig{Env: []string{"GIT_LITERAL_PATHSPECS=0"}})
	res := runner.Run(context.Background(), NewCommand("ls-files").Paths("*.txt"))
	require.True(t, res.Success, res.Output)
	assert.Equal(t, "*.txt\n", res.Output)
}

func TestExecutorFunc(t *testing.T) {
	var got []string
	fn := ExecutorFunc(func(_ context.Context, cmd Command) ExecResult {
		got = cmd.Args()
		return Succeeded("ok")
	})

	res := fn.Run(context.Background(), NewCommand("status"))
	assert.True(t, res.Success)
	assert.Equal(t, []string{"status"}, got)
}
