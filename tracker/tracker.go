// Package tracker watches a folder for newly created files using a cyclic
// worker.
package tracker

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"git.sr.ht/~sircmpwn/workctl"
)

// Tracker periodically lists the files matching a pattern in a folder and
// puts every path it has not seen in the previous listing on NewFiles. Files
// which existed before the tracker was created are not reported, but a file
// that is deleted and recreated is.
type Tracker struct {
	*workctl.CyclicWorker

	pattern  string
	created  time.Time
	newFiles *workctl.FIFO[string]
	seen     map[string]struct{}

	glob    func(pattern string) ([]string, error)
	modTime func(path string) (time.Time, error)
}

// Creates a tracker for files in folder matching pattern (a filepath.Match
// pattern, "*" if empty), scanning every scanInterval. Trackers are daemon
// workers unless opts say otherwise.
func New(folder, pattern string, scanInterval time.Duration, opts ...workctl.Option) (*Tracker, error) {
	if pattern == "" {
		pattern = "*"
	}
	t := &Tracker{
		pattern:  filepath.Join(folder, pattern),
		created:  time.Now(),
		newFiles: workctl.NewFIFO[string](),
		seen:     make(map[string]struct{}),
		glob:     filepath.Glob,
		modTime:  modTime,
	}

	opts = append([]workctl.Option{
		workctl.WithDaemon(true),
		workctl.WithDelay(scanInterval),
		workctl.WithPreparation(t.snapshot),
	}, opts...)
	w, err := workctl.NewCyclic(t.scan, opts...)
	if err != nil {
		return nil, err
	}
	t.CyclicWorker = w
	return t, nil
}

// Returns the queue receiving newly detected paths. It is safe to consume
// while the tracker runs.
func (t *Tracker) NewFiles() *workctl.FIFO[string] {
	return t.newFiles
}

// snapshot records the files that predate the tracker so the first scan
// does not report them.
func (t *Tracker) snapshot() error {
	files, err := t.glob(t.pattern)
	if err != nil {
		return err
	}
	for _, file := range files {
		mod, err := t.modTime(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return err
		}
		if mod.Before(t.created) {
			t.seen[file] = struct{}{}
		}
	}
	return nil
}

func (t *Tracker) scan() error {
	files, err := t.glob(t.pattern)
	if err != nil {
		return err
	}
	current := make(map[string]struct{}, len(files))
	for _, file := range files {
		current[file] = struct{}{}
		if _, ok := t.seen[file]; !ok {
			t.newFiles.Put(file)
		}
	}
	t.seen = current
	return nil
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
