package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/spigell/ingredient-matcher/internal/normalizer"
	"github.com/spigell/ingredient-matcher/internal/utils"
)

const defaultDebounce = 200 * time.Millisecond

// Store owns the current canonical snapshot. Readers always get a complete
// snapshot; Reload swaps it in one step.
type Store struct {
	path       string
	normalizer *normalizer.Normalizer
	logger     *zap.Logger
	current    atomic.Pointer[Snapshot]
	reloadMu   sync.Mutex

	// Debounce is the quiet period Watch waits for before reloading.
	Debounce time.Duration
}

// Open loads the canonical set from path. Matching can't work without it,
// so any load error is returned as is and the store is not usable.
func Open(path string, n *normalizer.Normalizer, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("canonical ingredients file is not configured")
	}

	if n == nil {
		n = normalizer.Default()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		path:       path,
		normalizer: n,
		logger:     logger,
		Debounce:   defaultDebounce,
	}

	if _, err := s.Reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// NewStatic wraps an in-memory canonical set. Reload is a no-op error for it.
func NewStatic(n *normalizer.Normalizer, ingredients []Ingredient) *Store {
	if n == nil {
		n = normalizer.Default()
	}

	s := &Store{normalizer: n, logger: zap.NewNop(), Debounce: defaultDebounce}
	s.current.Store(NewSnapshot("memory", n, ingredients))
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Path returns the canonical file the store loads from.
func (s *Store) Path() string {
	return s.path
}

// Reload reads the canonical file again and swaps the snapshot. On failure
// the previous snapshot stays active.
func (s *Store) Reload() (*Snapshot, error) {
	if s.path == "" {
		return nil, errors.New("store has no canonical file to reload from")
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ingredients, err := Load(s.path)
	if err != nil {
		return nil, err
	}

	snap := NewSnapshot(s.path, s.normalizer, ingredients)
	previous := s.current.Swap(snap)

	fields := []zap.Field{
		zap.String("path", s.path),
		zap.Int("ingredients", snap.Len()),
	}
	if previous != nil {
		fields = append(fields, zap.Int("previous_ingredients", previous.Len()))
	}
	s.logger.Info("canonical ingredients loaded", fields...)

	return snap, nil
}

// Watch reloads the store whenever the canonical file changes. It blocks
// until ctx is done. Reload failures are logged and the old snapshot is kept.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return errors.New("store has no canonical file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	// Watch the directory: editors often replace the file via rename.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	s.logger.Debug("watching canonical ingredients", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, target) {
				continue
			}

			if err := utils.WaitFor(ctx, s.Debounce); err != nil {
				return nil
			}
			drain(watcher.Events)

			if _, err := s.Reload(); err != nil {
				s.logger.Warn("reloading canonical ingredients failed, keeping previous snapshot",
					zap.String("path", target),
					zap.Error(err),
				)
			}
		}
	}
}

func relevant(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func drain(events <-chan fsnotify.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
