package scanner

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// watcher records manifest files an external process writes while a
// scan is running. The scan never locks against concurrent writers; a
// mismatch on a watched-modified file may be a benign race with a
// downloader, so the report calls those out separately.
type watcher struct {
	fsw *fsnotify.Watcher

	mu       sync.Mutex
	modified map[string]struct{}

	done chan struct{}
}

// newWatcher watches every directory containing a manifest file under
// root. Events on paths that resolve to manifest filenames are
// recorded.
func newWatcher(root string, manifest types.Manifest) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Manifest names may be nested; watch each distinct parent dir.
	dirs := map[string]struct{}{root: {}}
	for name := range manifest {
		dirs[filepath.Dir(filepath.Join(root, name))] = struct{}{}
	}
	for dir := range dirs {
		// Directories that do not exist yet simply are not watched.
		_ = fsw.Add(dir)
	}

	// Map absolute paths back to manifest names.
	byPath := make(map[string]string, len(manifest))
	for name := range manifest {
		byPath[filepath.Join(root, name)] = name
	}

	w := &watcher{
		fsw:      fsw,
		modified: make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	go func() {
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if name, ok := byPath[filepath.Clean(event.Name)]; ok {
					w.mu.Lock()
					w.modified[name] = struct{}{}
					w.mu.Unlock()
				}
			case <-fsw.Errors:
				// Watch errors are advisory only.
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Modified returns the manifest filenames written during the watch,
// sorted for stable reporting.
func (w *watcher) Modified() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	names := make([]string, 0, len(w.modified))
	for name := range w.modified {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops the watch.
func (w *watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
