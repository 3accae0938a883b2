package vault

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType classifies a vault change.
type EventType int

const (
	EventChanged EventType = iota
	EventCreated
	EventRemoved
)

// Event reports that a note changed on disk.
type Event struct {
	Type EventType
	Path string // vault-relative
}

// Watch reports changes to markdown notes until ctx is cancelled. Rapid
// events for the same path are coalesced over debounce.
func (v *Vault) Watch(ctx context.Context, debounce time.Duration) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := v.addDirs(watcher, v.root); err != nil {
		watcher.Close()
		return nil, err
	}

	events := make(chan Event, 32)

	go func() {
		defer watcher.Close()

		var (
			mu      sync.Mutex
			pending = make(map[string]*time.Timer)
			wg      sync.WaitGroup
		)
		defer func() {
			mu.Lock()
			for _, t := range pending {
				if t.Stop() {
					wg.Done()
				}
			}
			mu.Unlock()
			wg.Wait()
			close(events)
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = v.addDirs(watcher, event.Name)
						continue
					}
				}
				if !strings.EqualFold(filepath.Ext(event.Name), ".md") {
					continue
				}
				rel, err := filepath.Rel(v.root, event.Name)
				if err != nil {
					continue
				}
				rel = filepath.ToSlash(rel)

				ev := Event{Type: EventChanged, Path: rel}
				switch {
				case event.Op&fsnotify.Create != 0:
					ev.Type = EventCreated
				case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					ev.Type = EventRemoved
				}

				mu.Lock()
				if t, ok := pending[rel]; ok && t.Stop() {
					wg.Done()
				}
				wg.Add(1)
				pending[rel] = time.AfterFunc(debounce, func() {
					defer wg.Done()
					mu.Lock()
					delete(pending, rel)
					mu.Unlock()
					select {
					case events <- ev:
					default:
						// Channel full, drop event
					}
				})
				mu.Unlock()

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}

func (v *Vault) addDirs(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != v.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
