package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dshills/stagehand/internal/git"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var _ Target = (*git.Repository)(nil)

type recordingTarget struct {
	gitDir string

	mu       sync.Mutex
	statuses []string
	branches int
}

func (r *recordingTarget) GitDir() string { return r.gitDir }

func (r *recordingTarget) NotifyStatusChanged(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, action)
}

func (r *recordingTarget) UpdateCurrentBranch(context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branches++
	return "main"
}

func (r *recordingTarget) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses), r.branches
}

func newControlDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".git")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "refs", "heads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	return dir
}

func startWatcher(t *testing.T, target *recordingTarget) *Watcher {
	t.Helper()
	w, err := New(target, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return w
}

func TestClassify(t *testing.T) {
	tests := []struct {
		rel  string
		want Kind
	}{
		{"index", KindStatus},
		{"index.lock", KindNone},
		{"CHERRY_PICK_HEAD", KindStatus},
		{"MERGE_HEAD", KindStatus},
		{"HEAD", KindBranch},
		{"HEAD.lock", KindNone},
		{"packed-refs", KindBranch},
		{"refs/heads/main", KindBranch},
		{"refs/heads/feature/x", KindBranch},
		{"refs/heads/main.lock", KindNone},
		{"refs/tags/v1", KindNone},
		{"ORIG_HEAD", KindNone},
		{"objects/ab/cdef", KindNone},
		{"logs/HEAD", KindNone},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.rel))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "status|branch", (KindStatus | KindBranch).String())
	assert.True(t, (KindStatus | KindBranch).Has(KindBranch))
	assert.False(t, KindStatus.Has(KindBranch))
}

func TestDebouncerCoalesces(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(KindStatus)
	d.Add(KindNone)
	d.Add(KindBranch)
	d.Add(KindStatus)

	select {
	case <-d.Ready():
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
	assert.Equal(t, KindStatus|KindBranch, d.Take())
	assert.Equal(t, KindNone, d.Take())
}

func TestDebouncerStopped(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	d.Stop()
	d.Add(KindStatus)
	assert.Equal(t, KindNone, d.Take())
}

func TestWatcherIndexChange(t *testing.T) {
	target := &recordingTarget{gitDir: newControlDir(t)}
	startWatcher(t, target)

	require.NoError(t, os.WriteFile(filepath.Join(target.gitDir, "index"), []byte("DIRC"), 0o644))

	assert.Eventually(t, func() bool {
		statuses, _ := target.counts()
		return statuses >= 1
	}, 2*time.Second, 10*time.Millisecond)

	target.mu.Lock()
	assert.Equal(t, ActionWatch, target.statuses[0])
	target.mu.Unlock()
}

func TestWatcherBranchChange(t *testing.T) {
	target := &recordingTarget{gitDir: newControlDir(t)}
	startWatcher(t, target)

	ref := filepath.Join(target.gitDir, "refs", "heads", "main")
	require.NoError(t, os.WriteFile(ref, []byte("0123456789012345678901234567890123456789\n"), 0o644))

	assert.Eventually(t, func() bool {
		_, branches := target.counts()
		return branches >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherNestedBranchDirectory(t *testing.T) {
	target := &recordingTarget{gitDir: newControlDir(t)}
	w := startWatcher(t, target)

	nested := filepath.Join(target.gitDir, "refs", "heads", "feature")
	require.NoError(t, os.Mkdir(nested, 0o755))

	assert.Eventually(t, func() bool {
		return w.Stats().WatchedPaths == 3
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(nested, "x"), []byte("sha\n"), 0o644))
	assert.Eventually(t, func() bool {
		_, branches := target.counts()
		return branches >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresLockAndObjects(t *testing.T) {
	target := &recordingTarget{gitDir: newControlDir(t)}
	w := startWatcher(t, target)

	require.NoError(t, os.WriteFile(filepath.Join(target.gitDir, "index.lock"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(target.gitDir, "ORIG_HEAD"), nil, 0o644))

	assert.Eventually(t, func() bool {
		return w.Stats().RawEvents >= 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Never(t, func() bool {
		statuses, branches := target.counts()
		return statuses+branches > 0
	}, 150*time.Millisecond, 10*time.Millisecond)
}

func TestWatcherMissingControlDir(t *testing.T) {
	target := &recordingTarget{gitDir: filepath.Join(t.TempDir(), "missing")}
	_, err := New(target, Options{})
	assert.Error(t, err)
}

func TestWatcherCloseTwice(t *testing.T) {
	target := &recordingTarget{gitDir: newControlDir(t)}
	w, err := New(target, Options{})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
	assert.ErrorIs(t, w.add(target.gitDir), ErrWatcherClosed)
}

type mockTarget struct {
	mock.Mock
}

func (m *mockTarget) GitDir() string { return "" }

func (m *mockTarget) NotifyStatusChanged(action string) {
	m.Called(action)
}

func (m *mockTarget) UpdateCurrentBranch(ctx context.Context) string {
	return m.Called(ctx).String(0)
}

func TestNotifyDispatchesEachKind(t *testing.T) {
	target := &mockTarget{}
	target.On("NotifyStatusChanged", ActionWatch).Once()
	target.On("UpdateCurrentBranch", mock.Anything).Return("main").Once()

	w := &Watcher{target: target}
	w.notify(context.Background(), KindStatus|KindBranch)
	w.notify(context.Background(), KindNone)

	target.AssertExpectations(t)
	assert.Equal(t, int64(1), w.Stats().Notifications)
}
