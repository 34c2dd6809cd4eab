package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pscheid92/overlayd/internal/domain"
	"gopkg.in/yaml.v3"
)

// settingsFile is the on-disk form of the platform's permission settings:
//
//	granted:
//	  - draw-overlay
//	  - notification-listener
type settingsFile struct {
	Granted []string `yaml:"granted"`
}

// LoadFile reads the granted kinds from a settings file.
func LoadFile(path string) ([]domain.PermissionKind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permission settings: %w", err)
	}

	var doc settingsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse permission settings %s: %w", path, err)
	}

	kinds := make([]domain.PermissionKind, 0, len(doc.Granted))
	for _, name := range doc.Granted {
		kind, err := domain.ParsePermissionKind(name)
		if err != nil {
			return nil, fmt.Errorf("permission settings %s: %w", path, err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// FileSync keeps a Store equal to a settings file, standing in for the user flipping switches in
// the system settings app.
type FileSync struct {
	path  string
	store *Store
}

// NewFileSync creates a sync for path. Call Apply for the initial load and Run to follow edits.
func NewFileSync(path string, store *Store) *FileSync {
	return &FileSync{path: filepath.Clean(path), store: store}
}

// Apply loads the file and grants exactly the kinds it lists. An invalid file leaves the store
// unchanged.
func (f *FileSync) Apply() error {
	kinds, err := LoadFile(f.path)
	if err != nil {
		return err
	}

	granted := make(map[domain.PermissionKind]bool, len(kinds))
	for _, k := range kinds {
		granted[k] = true
	}
	for _, k := range domain.AllPermissions {
		if granted[k] {
			f.store.Grant(k)
		} else {
			f.store.Revoke(k)
		}
	}
	return nil
}

// Run applies the file whenever it changes until ctx is cancelled. The parent directory is
// watched so editors that replace the file on save are followed too.
func (f *FileSync) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create permission watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", f.path, err)
	}
	slog.Info("Watching permission settings", "path", f.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := f.Apply(); err != nil {
				slog.Warn("Ignoring invalid permission settings", "path", f.path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were dropped.
				if err := f.Apply(); err != nil {
					slog.Warn("Ignoring invalid permission settings", "path", f.path, "error", err)
				}
				continue
			}
			slog.Warn("Permission watcher error", "error", err)
		}
	}
}
