package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/content-factory/topic-monitor/internal/models"
)

// ReportArchive writes report snapshots to a BlobStore under a date-partitioned layout
type ReportArchive struct {
	blobs BlobStore
}

// NewReportArchive wraps a blob store
func NewReportArchive(blobs BlobStore) *ReportArchive {
	return &ReportArchive{blobs: blobs}
}

// ArchivePath is reports/YYYY/MM/DD/report-{id}.json in the report's creation date
func ArchivePath(report *models.Report) string {
	return fmt.Sprintf("reports/%s/report-%d.json", report.CreatedAt.Format("2006/01/02"), report.ID)
}

// Archive uploads the report as indented JSON and returns its blob name
func (a *ReportArchive) Archive(ctx context.Context, report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report %d: %w", report.ID, err)
	}

	name := ArchivePath(report)
	if err := a.blobs.Store(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// MemoryBlobStore is a map-backed BlobStore
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ BlobStore = (*MemoryBlobStore)(nil)

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Store(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the named blob
func (m *MemoryBlobStore) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Names lists the blob names under prefix in lexical order
func (m *MemoryBlobStore) Names(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
