package prefabs

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce drops repeat events for the same file inside this window;
// editors often emit several writes per save.
const DefaultDebounce = 100 * time.Millisecond

type ChangeKind int

const (
	ChangeGridSpec ChangeKind = iota
	ChangeScript
)

func (k ChangeKind) String() string {
	if k == ChangeScript {
		return "script"
	}
	return "grid_spec"
}

// Change reports a spec or script file that was written, created, renamed or
// removed.
type Change struct {
	Path string
	Kind ChangeKind
	Op   fsnotify.Op
}

type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	Events   chan Change
	Errors   chan error
	closeCh  chan struct{}
	doneCh   chan struct{}
	once     sync.Once
}

// NewWatcher watches the given directories for grid spec and script changes.
func NewWatcher(dirs ...string) (*Watcher, error) {
	return NewWatcherWithDebounce(DefaultDebounce, dirs...)
}

func NewWatcherWithDebounce(debounce time.Duration, dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher:  w,
		debounce: debounce,
		Events:   make(chan Change, 16),
		Errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher. Events and Errors are closed once the run loop
// has exited, so receivers never race a send.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.doneCh
		close(w.Events)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			var kind ChangeKind
			switch {
			case isSpecFile(event.Name):
				kind = ChangeGridSpec
			case isScriptFile(event.Name):
				kind = ChangeScript
			default:
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < w.debounce {
				continue
			}
			last[event.Name] = now
			logger.Debug("file changed", "path", event.Name, "kind", kind, "op", event.Op)
			select {
			case w.Events <- Change{Path: event.Name, Kind: kind, Op: event.Op}:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

func isSpecFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isScriptFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tengo"
}
