package memory

import (
	"context"
	"sync"
)

// WardDirectory resolves ward administrators from a static assignment map.
type WardDirectory struct {
	mu     sync.RWMutex
	admins map[string]string
}

func NewWardDirectory(admins map[string]string) *WardDirectory {
	copied := make(map[string]string, len(admins))
	for ward, adminID := range admins {
		copied[ward] = adminID
	}
	return &WardDirectory{admins: copied}
}

func (d *WardDirectory) AdminFor(_ context.Context, ward string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	adminID, ok := d.admins[ward]
	return adminID, ok, nil
}

func (d *WardDirectory) SetAdmin(ward string, adminID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.admins[ward] = adminID
}
