package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/studio/config"
)

// Manager holds the configured disks and names the default one.
type Manager struct {
	mu          sync.RWMutex
	disks       map[string]Disk
	defaultDisk string
}

// NewManager registers the given disks; the first one is the default.
func NewManager(disks ...Disk) *Manager {
	m := &Manager{disks: map[string]Disk{}}
	for _, d := range disks {
		m.Register(d)
	}
	if len(disks) > 0 {
		m.defaultDisk = disks[0].Name()
	}
	return m
}

// FromConfig always boots the local disk. The S3 disk is booted when
// S3_BUCKET and credentials are configured, and then becomes the default
// unless STORAGE_DISK=local.
func FromConfig(ctx context.Context) (*Manager, error) {
	local := NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())
	m := NewManager(local)

	if config.StorageS3Bucket() == "" || config.StorageS3Key() == "" || config.StorageS3Secret() == "" {
		return m, nil
	}

	s3d, err := NewS3Disk(ctx, S3Options{
		Bucket:   config.StorageS3Bucket(),
		Region:   config.StorageS3Region(),
		Key:      config.StorageS3Key(),
		Secret:   config.StorageS3Secret(),
		Endpoint: config.StorageS3Endpoint(),
		BaseURL:  config.StorageS3URL(),
	})
	if err != nil {
		return m, err
	}
	m.Register(s3d)
	if config.StorageDefault() != "local" {
		m.defaultDisk = s3d.Name()
	}
	return m, nil
}

// Register adds or replaces a disk under its Name.
func (m *Manager) Register(d Disk) {
	m.mu.Lock()
	m.disks[d.Name()] = d
	m.mu.Unlock()
}

// Disk returns the named disk.
func (m *Manager) Disk(name string) (Disk, error) {
	m.mu.RLock()
	d, ok := m.disks[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Default returns the disk new uploads are written to.
func (m *Manager) Default() Disk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disks[m.defaultDisk]
}

// Local returns the local disk when one is registered.
func (m *Manager) Local() (*LocalDisk, bool) {
	d, err := m.Disk("local")
	if err != nil {
		return nil, false
	}
	ld, ok := d.(*LocalDisk)
	return ld, ok
}
