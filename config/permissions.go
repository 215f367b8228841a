package config

import (
	"fmt"
	"sync"
)

// PermissionStore persists "always allow" / "always deny" decisions made at
// the confirmation gate. It appends to the ordered rule list in settings.toml
// so the rules survive restarts.
type PermissionStore struct {
	mu  sync.Mutex
	cfg *Config
}

func NewPermissionStore(cfg *Config) *PermissionStore {
	return &PermissionStore{cfg: cfg}
}

// Rules returns a copy of the persisted rules in evaluation order.
func (s *PermissionStore) Rules() []PermissionRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PermissionRule, len(s.cfg.Permissions))
	copy(out, s.cfg.Permissions)
	return out
}

// Append adds a rule and writes settings.toml immediately. A decision the
// user asked to persist must not be lost to a crash.
func (s *PermissionStore) Append(pattern, permission string) error {
	if pattern == "" {
		return fmt.Errorf("permission rule pattern must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Permissions = append(s.cfg.Permissions, PermissionRule{
		Pattern:    pattern,
		Permission: permission,
	})

	if err := Save(s.cfg); err != nil {
		return fmt.Errorf("failed to persist permission rule: %w", err)
	}

	if Debug && DebugLog != nil {
		DebugLog.Printf("[PermissionStore] Persisted rule %q -> %s", pattern, permission)
	}

	return nil
}
