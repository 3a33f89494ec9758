package git

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeExecutor records every command and answers from respond.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   [][]string
	respond func(cmd Command) ExecResult
}

func (f *fakeExecutor) Run(_ context.Context, cmd Command) ExecResult {
	f.mu.Lock()
	f.calls = append(f.calls, cmd.Args())
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		return respond(cmd)
	}
	return Succeeded("")
}

func (f *fakeExecutor) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func (f *fakeExecutor) Verbs() []string {
	var verbs []string
	for _, c := range f.Calls() {
		verbs = append(verbs, c[0])
	}
	return verbs
}

// failVerb makes every command with the given verb fail.
func failVerb(verb, output string) func(Command) ExecResult {
	return func(cmd Command) ExecResult {
		if cmd.Verb() == verb {
			return ExecResult{Output: output}
		}
		return Succeeded("")
	}
}

type publishedEvent struct {
	Type string
	Data map[string]any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(eventType string, data map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// fakeRepo opens a Repository over a fake executor in a temp directory.
func fakeRepo(t *testing.T, exec *fakeExecutor, controlFS fs.FS) (*Repository, *recordingPublisher) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	pub := &recordingPublisher{}
	repo, err := OpenRepository(dir, Options{
		Executor:  exec,
		EventBus:  pub,
		ControlFS: controlFS,
	})
	require.NoError(t, err)
	return repo, pub
}

// testRepo creates a temporary git repository for testing.
func testRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

// createFile creates a file in the repo.
func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// gitCmd runs a git command in the repo.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s\n%s", strings.Join(args, " "), out)
	return string(out)
}

// gitCmdMayFail runs a git command and returns its error instead of failing.
func gitCmdMayFail(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd.Run()
}

func removeFile(dir, name string) error {
	return os.Remove(filepath.Join(dir, name))
}
