package tracker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFolder stands in for the file system.
type fakeFolder struct {
	mutex sync.Mutex
	files []string
	ages  map[string]time.Duration
	now   time.Time
}

func (f *fakeFolder) set(files ...string) {
	f.mutex.Lock()
	f.files = files
	f.mutex.Unlock()
}

func (f *fakeFolder) glob(string) ([]string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.files...), nil
}

func (f *fakeFolder) modTime(path string) (time.Time, error) {
	return f.now.Add(f.ages[path]), nil
}

func drain(tr *Tracker) []string {
	var files []string
	for {
		file, err := tr.NewFiles().Get()
		if err != nil {
			return files
		}
		tr.NewFiles().TaskDone()
		files = append(files, file)
	}
}

func stop(t *testing.T, tr *Tracker) {
	t.Helper()
	require.NoError(t, tr.Stop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Join(ctx))
}

func TestTrackerEmptyFolder(t *testing.T) {
	tr, err := New("dir", "", 5*time.Millisecond)
	require.NoError(t, err)
	folder := &fakeFolder{}
	tr.glob = folder.glob

	require.NoError(t, tr.Start())
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, drain(tr))
	stop(t, tr)
}

func TestTrackerFunctionality(t *testing.T) {
	root := filepath.Join("path", "to", "folder")
	file1 := filepath.Join(root, "file1.txt")
	file2 := filepath.Join(root, "file2.csv")
	file3 := filepath.Join(root, "file3.xml")
	file4 := filepath.Join(root, "file4.go")

	tr, err := New(root, "*", 5*time.Millisecond)
	require.NoError(t, err)
	folder := &fakeFolder{
		now: tr.created,
		ages: map[string]time.Duration{
			file1: -5 * time.Second,
			file2: 5 * time.Second,
			file3: 6 * time.Second,
		},
	}
	folder.set(file1, file2, file3)
	tr.glob = folder.glob
	tr.modTime = folder.modTime

	// Files created before the tracker are ignored.
	require.NoError(t, tr.Start())
	time.Sleep(100 * time.Millisecond)
	assert.ElementsMatch(t, []string{file2, file3}, drain(tr))

	// Only the newly created file is reported.
	folder.set(file1, file2, file3, file4)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{file4}, drain(tr))

	// Deletion reports nothing.
	folder.set()
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, drain(tr))

	// Recreated files are reported again.
	folder.set(file1, file2, file3)
	time.Sleep(100 * time.Millisecond)
	assert.ElementsMatch(t, []string{file1, file2, file3}, drain(tr))

	stop(t, tr)
}

func TestTrackerRealFolder(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.txt")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	tr, err := New(dir, "*.txt", 5*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, tr.Start())
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, drain(tr))

	created := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(created, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.log"), []byte("no"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{created}, drain(tr))

	stop(t, tr)
	assert.True(t, tr.Daemon())
}

func TestTrackerGlobFailure(t *testing.T) {
	tr, err := New(t.TempDir(), "[", time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, tr.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = tr.Join(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preparation failed")
}
