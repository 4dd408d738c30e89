// Package config loads reprieve's TOML settings and resolves its data paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"reprieve/internal/types"
)

const (
	defaultWindow        = 5 * time.Second
	defaultCommitTimeout = 30 * time.Second
	defaultBackend       = "bbolt"
	defaultBuckets       = "relative"
)

type Config struct {
	Undo          UndoConfig          `json:"undo" toml:"undo"`
	Storage       StorageConfig       `json:"storage" toml:"storage"`
	Logging       LoggingConfig       `json:"logging" toml:"logging"`
	Notifications NotificationsConfig `json:"notifications" toml:"notifications"`
	UI            UIConfig            `json:"ui" toml:"ui"`
}

type UndoConfig struct {
	Window        string                     `json:"window" toml:"window"`
	CommitTimeout string                     `json:"commit_timeout" toml:"commit_timeout"`
	Scopes        map[string]UndoScopeConfig `json:"scopes,omitempty" toml:"scopes,omitempty"`
}

type UndoScopeConfig struct {
	Window        string `json:"window,omitempty" toml:"window,omitempty"`
	Notifications *bool  `json:"notifications,omitempty" toml:"notifications,omitempty"`
}

type StorageConfig struct {
	Backend string `json:"backend" toml:"backend"`
	Path    string `json:"path,omitempty" toml:"path,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level" toml:"level"`
}

type NotificationsConfig struct {
	Enabled             *bool    `json:"enabled,omitempty" toml:"enabled,omitempty"`
	Methods             []string `json:"methods,omitempty" toml:"methods,omitempty"`
	Triggers            []string `json:"triggers,omitempty" toml:"triggers,omitempty"`
	DedupeWindowSeconds *int     `json:"dedupe_window_seconds,omitempty" toml:"dedupe_window_seconds,omitempty"`
}

type UIConfig struct {
	Buckets string `json:"buckets" toml:"buckets"`
	Scope   string `json:"scope" toml:"scope"`
}

func DefaultConfig() Config {
	enabled := true
	dedupe := types.DefaultNotificationSettings().DedupeWindowSeconds
	return Config{
		Undo: UndoConfig{
			Window:        defaultWindow.String(),
			CommitTimeout: defaultCommitTimeout.String(),
		},
		Storage: StorageConfig{Backend: defaultBackend},
		Logging: LoggingConfig{Level: "info"},
		Notifications: NotificationsConfig{
			Enabled:             &enabled,
			Methods:             []string{string(types.NotificationMethodLog)},
			DedupeWindowSeconds: &dedupe,
		},
		UI: UIConfig{
			Buckets: defaultBuckets,
			Scope:   string(types.ScopeHistory),
		},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads path over the defaults. A missing or empty file yields
// the defaults.
func LoadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports malformed durations and enum values.
func (c Config) Validate() error {
	var errs error
	if _, err := parseDuration(c.Undo.Window); err != nil {
		errs = errors.Join(errs, fmt.Errorf("undo.window: %w", err))
	}
	if _, err := parseDuration(c.Undo.CommitTimeout); err != nil {
		errs = errors.Join(errs, fmt.Errorf("undo.commit_timeout: %w", err))
	}
	for name, scope := range c.Undo.Scopes {
		if _, ok := types.NormalizeScope(name); !ok {
			errs = errors.Join(errs, fmt.Errorf("undo.scopes: invalid scope %q", name))
		}
		if _, err := parseDuration(scope.Window); err != nil {
			errs = errors.Join(errs, fmt.Errorf("undo.scopes.%s.window: %w", name, err))
		}
	}
	switch c.StorageBackend() {
	case "bbolt", "file":
	default:
		errs = errors.Join(errs, fmt.Errorf("storage.backend: unsupported %q", c.Storage.Backend))
	}
	switch c.UIBuckets() {
	case "relative", "none":
	default:
		errs = errors.Join(errs, fmt.Errorf("ui.buckets: unsupported %q", c.UI.Buckets))
	}
	return errs
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func (c Config) Window() time.Duration {
	return durationOr(c.Undo.Window, defaultWindow)
}

func (c Config) CommitTimeout() time.Duration {
	return durationOr(c.Undo.CommitTimeout, defaultCommitTimeout)
}

// ScopeWindows returns the per-scope undo window overrides.
func (c Config) ScopeWindows() map[types.Scope]time.Duration {
	out := map[types.Scope]time.Duration{}
	for name, scope := range c.Undo.Scopes {
		key, ok := types.NormalizeScope(name)
		if !ok {
			continue
		}
		if window := durationOr(scope.Window, 0); window > 0 {
			out[key] = window
		}
	}
	return out
}

func (c Config) WindowFor(scope types.Scope) time.Duration {
	if window, ok := c.ScopeWindows()[scope]; ok {
		return window
	}
	return c.Window()
}

// SilencedScopes lists scopes with notifications turned off.
func (c Config) SilencedScopes() []types.Scope {
	var out []types.Scope
	for name, scope := range c.Undo.Scopes {
		key, ok := types.NormalizeScope(name)
		if !ok || scope.Notifications == nil || *scope.Notifications {
			continue
		}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Config) StorageBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if backend == "" {
		return defaultBackend
	}
	return backend
}

// StoragePath resolves the configured storage path, defaulting to the
// backend's file under the data dir.
func (c Config) StoragePath() (string, error) {
	if path := strings.TrimSpace(c.Storage.Path); path != "" {
		return resolveConfigPath(path)
	}
	if c.StorageBackend() == "file" {
		return ListsPath()
	}
	return DBPath()
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) NotificationSettings() types.NotificationSettings {
	out := types.DefaultNotificationSettings()
	if c.Notifications.Enabled != nil {
		out.Enabled = *c.Notifications.Enabled
	}
	if len(c.Notifications.Methods) > 0 {
		out.Methods = nil
		for _, raw := range normalizedList(c.Notifications.Methods) {
			if method, ok := types.NormalizeNotificationMethod(raw); ok {
				out.Methods = append(out.Methods, method)
			}
		}
	}
	if len(c.Notifications.Triggers) > 0 {
		out.Triggers = nil
		for _, raw := range normalizedList(c.Notifications.Triggers) {
			if trigger, ok := types.NormalizeNotificationTrigger(raw); ok {
				out.Triggers = append(out.Triggers, trigger)
			}
		}
	}
	if c.Notifications.DedupeWindowSeconds != nil {
		out.DedupeWindowSeconds = *c.Notifications.DedupeWindowSeconds
	}
	return types.NormalizeNotificationSettings(out)
}

func (c Config) UIBuckets() string {
	mode := strings.ToLower(strings.TrimSpace(c.UI.Buckets))
	if mode == "" {
		return defaultBuckets
	}
	return mode
}

func (c Config) UIScope() types.Scope {
	if scope, ok := types.NormalizeScope(c.UI.Scope); ok {
		return scope
	}
	return types.ScopeHistory
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return d, nil
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	d, err := parseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}

func normalizedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
