package hub

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
)

// MappingWatcher reloads the hardware-type classification table from a YAML
// file whenever it changes, so new device models can be mapped without a
// restart. The file holds a list under the "hardwareTypes" key:
//
//	hardwareTypes:
//	  - code: u5
//	    matches: ["NB", "MB", "WB"]
type MappingWatcher struct {
	path       string
	classifier *firmware.Classifier
	watcher    *fsnotify.Watcher
}

// NewMappingWatcher loads the mapping file once and starts watching its
// directory. Watching the directory instead of the file survives the
// rename-and-replace writes editors and config managers do.
func NewMappingWatcher(path string, classifier *firmware.Classifier) (*MappingWatcher, error) {
	m := &MappingWatcher{
		path:       path,
		classifier: classifier,
	}

	if err := m.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	m.watcher = watcher

	return m, nil
}

// Run applies file changes until the context is cancelled. A reload failure
// keeps the previous table and logs the error.
func (m *MappingWatcher) Run(ctx context.Context) error {
	defer m.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := m.reload(); err != nil {
				log.Error(err, "Failed to reload hardware-type mapping", "file", m.path)
				continue
			}
			log.Info("Reloaded hardware-type mapping", "file", m.path)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err, "Mapping file watcher error", "file", m.path)
		}
	}
}

func (m *MappingWatcher) reload() error {
	v := viper.New()
	v.SetConfigFile(m.path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read mapping file %s: %w", m.path, err)
	}

	var entries []firmware.ClassifierEntry
	if err := v.UnmarshalKey("hardwareTypes", &entries); err != nil {
		return fmt.Errorf("failed to parse mapping file %s: %w", m.path, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("mapping file %s defines no hardware types", m.path)
	}

	m.classifier.Replace(entries)
	return nil
}
