package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Loader reads a configuration file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  File
	onChange []func(File)
	onError  func(error)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	l.current = f
	return l, nil
}

// Path returns the watched file path.
func (l *Loader) Path() string { return l.path }

// Current returns the most recently loaded configuration.
func (l *Loader) Current() File {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the file reloads.
func (l *Loader) OnChange(fn func(File)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// OnError registers a callback for reload failures. The previous
// configuration stays current when a reload fails.
func (l *Loader) OnError(fn func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
}

// Reload re-reads the file and notifies subscribers.
func (l *Loader) Reload() (File, error) {
	f, err := Load(l.path)
	if err != nil {
		l.mu.RLock()
		onError := l.onError
		l.mu.RUnlock()
		if onError != nil {
			onError(err)
		}
		return File{}, err
	}
	l.mu.Lock()
	l.current = f
	callbacks := make([]func(File), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(f)
	}
	return f, nil
}

// Watch starts a goroutine that reloads the file on writes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					_, _ = l.Reload()
				}
			case <-w.Errors:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}
