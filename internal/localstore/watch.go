package localstore

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change reports that another process modified key.
type Change struct {
	Key     string
	Removed bool
}

// Watcher delivers Changes for a File store directory.
type Watcher struct {
	store   *File
	watcher *fsnotify.Watcher
	changes chan Change
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// Watch starts watching the store directory. Writes made through f itself
// are not reported. Call Stop to release the watcher.
func (f *File) Watch() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(f.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", f.dir, err)
	}

	w := &Watcher{
		store:   f,
		watcher: fw,
		changes: make(chan Change, 32),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changes is closed when the watcher stops.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Errors is closed when the watcher stops.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop ends watching and waits for the event loop to exit. Safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
		close(w.changes)
		close(w.errors)
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			key, ok := keyFromPath(event.Name)
			if !ok {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.store.changedExternally(key) {
				continue
			}
			removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
			select {
			case w.changes <- Change{Key: key, Removed: removed}:
			case <-w.done:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				// Drop when nobody is listening
			}
		}
	}
}
