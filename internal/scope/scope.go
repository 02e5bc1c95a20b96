// Package scope implements the one-per-scope aggregate that owns a
// scope's lock manager handle,
// mdStore, metadata cache, and event bus subscription, and runs pending
// migrations on first open.
package scope

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/audit"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/lock"
	"github.com/prizm-dev/prizm/internal/mdstore"
	"github.com/prizm-dev/prizm/internal/metadatacache"
	"github.com/prizm-dev/prizm/internal/migrate"
	"github.com/prizm-dev/prizm/internal/pathprovider"
	"github.com/prizm-dev/prizm/internal/versions"
)

// Config is .prizm/scope.json: the only file the core treats as
// config. Unknown keys are preserved across rewrites.
type Config struct {
	ID          string         `json:"id"`
	Label       string         `json:"label,omitempty"`
	DataVersion int            `json:"dataVersion"`
	Settings    ConfigSettings `json:"settings"`

	// unknown carries any keys this version of Prizm doesn't recognize,
	// so a rewrite never drops operator-added config.
	unknown map[string]json.RawMessage `json:"-"`
}

// ConfigSettings is scope.json's settings block.
type ConfigSettings struct {
	ExcludePatterns []string `json:"excludePatterns,omitempty"`
}

// ErrMigrationRequired is returned by Open when a migration fails;
// callers surface MIGRATION_REQUIRED to the client and refuse to serve
// the scope.
type ErrMigrationRequired struct {
	Err error
}

func (e *ErrMigrationRequired) Error() string {
	return fmt.Sprintf("scope migration required: %v", e.Err)
}

func (e *ErrMigrationRequired) Unwrap() error { return e.Err }

// Store is one open scope: its config, Layer 0/1 store, lock manager
// handle, metadata cache, version store, checkpoint store, and event bus
// subscription point.
type Store struct {
	Root   string
	Config *Config

	MD          *mdstore.Store
	Locks       *lock.Manager
	Cache       *metadatacache.Cache
	Versions    *versions.Store
	Checkpoints *checkpoint.Store
	Audit       *audit.Log
	Bus         *events.Bus
}

// Open loads (creating if absent) scopeRoot/.prizm/scope.json, runs any
// pending migrations, and returns a ready-to-use Store. locks and bus are
// shared process-wide instances constructed once at startup and passed
// in explicitly, constructed once at startup; tests may substitute
// fakes.
func Open(scopeRoot string, locks *lock.Manager, bus *events.Bus) (*Store, error) {
	abs, err := filepath.Abs(scopeRoot)
	if err != nil {
		return nil, err
	}

	md := mdstore.New(abs)

	if err := os.MkdirAll(filepath.Join(abs, pathprovider.SystemDir), 0750); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", pathprovider.SystemDir, err)
	}

	// Config load plus the whole migration run happen under a
	// cross-process file lock: two daemons racing to open the same scope
	// must not both apply a migration or interleave scope.json writes.
	var cfg *Config
	var migErr error
	err = lock.WithFileLock(filepath.Join(abs, pathprovider.SystemDir, "migrate.lock"), func() error {
		var err error
		cfg, err = loadOrCreateConfig(md)
		if err != nil {
			return err
		}

		var newVersion int
		newVersion, migErr = migrate.RunPending(md, cfg.DataVersion)
		cfg.DataVersion = newVersion
		if err := saveConfig(md, cfg); err != nil && migErr == nil {
			return fmt.Errorf("persist dataVersion after migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if migErr != nil {
		return nil, &ErrMigrationRequired{Err: migErr}
	}

	auditLog, err := audit.Open(abs)
	if err != nil {
		return nil, err
	}

	cache := metadatacache.New(abs, cfg.Settings.ExcludePatterns)
	// Writes through this scope's store invalidate the cache immediately;
	// out-of-band edits are only caught by the watcher tick, so a read
	// racing one may briefly see the previous scan.
	md.SetMutationObserver(cache.Invalidate)

	s := &Store{
		Root:        abs,
		Config:      cfg,
		MD:          md,
		Locks:       locks,
		Cache:       cache,
		Versions:    versions.New(md),
		Checkpoints: checkpoint.New(),
		Audit:       auditLog,
		Bus:         bus,
	}
	return s, nil
}

// Close releases the scope's audit log and metadata-cache watcher.
func (s *Store) Close() error {
	var err error
	if cacheErr := s.Cache.Close(); cacheErr != nil {
		err = cacheErr
	}
	if auditErr := s.Audit.Close(); auditErr != nil {
		err = auditErr
	}
	return err
}

func loadOrCreateConfig(md *mdstore.Store) (*Config, error) {
	fi, err := md.ReadSystemFileByPath(pathprovider.SystemDir + "/scope.json")
	if err != nil {
		return nil, err
	}
	if fi == nil {
		cfg := &Config{ID: uuid.NewString(), DataVersion: 0}
		if err := saveConfig(md, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return parseConfig([]byte(fi.Content))
}

func parseConfig(raw []byte) (*Config, error) {
	var whole map[string]json.RawMessage
	if err := json.Unmarshal(raw, &whole); err != nil {
		return nil, fmt.Errorf("parse scope.json: %w", err)
	}

	cfg := &Config{unknown: whole}
	if v, ok := whole["id"]; ok {
		_ = json.Unmarshal(v, &cfg.ID)
	}
	if v, ok := whole["label"]; ok {
		_ = json.Unmarshal(v, &cfg.Label)
	}
	if v, ok := whole["dataVersion"]; ok {
		_ = json.Unmarshal(v, &cfg.DataVersion)
	}
	if v, ok := whole["settings"]; ok {
		_ = json.Unmarshal(v, &cfg.Settings)
	}
	return cfg, nil
}

func saveConfig(md *mdstore.Store, cfg *Config) error {
	merged := make(map[string]json.RawMessage, len(cfg.unknown)+4)
	for k, v := range cfg.unknown {
		merged[k] = v
	}

	setJSON := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		merged[key] = raw
		return nil
	}
	if err := setJSON("id", cfg.ID); err != nil {
		return err
	}
	if cfg.Label != "" {
		if err := setJSON("label", cfg.Label); err != nil {
			return err
		}
	}
	if err := setJSON("dataVersion", cfg.DataVersion); err != nil {
		return err
	}
	if err := setJSON("settings", cfg.Settings); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	return md.WriteSystemFileByPath(pathprovider.SystemDir+"/scope.json", append(raw, '\n'))
}
