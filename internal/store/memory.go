package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/google/uuid"
)

// Memory is an in-memory Store. Safe for concurrent use. Reads return
// copies so callers can never mutate stored state in place.
type Memory struct {
	mu       sync.RWMutex
	files    map[uuid.UUID]unit.FileUpload
	units    map[string]unit.UnitRecord
	events   []unit.LifecycleEvent
	eventKey map[string]struct{}
	metrics  map[uuid.UUID]FileMetrics
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		files:    make(map[uuid.UUID]unit.FileUpload),
		units:    make(map[string]unit.UnitRecord),
		eventKey: make(map[string]struct{}),
		metrics:  make(map[uuid.UUID]FileMetrics),
	}
}

func (m *Memory) CreateFileUpload(_ context.Context, fu *unit.FileUpload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[fu.ID]; exists {
		return fmt.Errorf("file upload %s already exists", fu.ID)
	}
	m.files[fu.ID] = *fu
	return nil
}

func (m *Memory) UpdateFileUpload(_ context.Context, fu *unit.FileUpload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[fu.ID]; !exists {
		return ErrNotFound
	}
	m.files[fu.ID] = *fu
	return nil
}

func (m *Memory) GetFileUpload(_ context.Context, id uuid.UUID) (*unit.FileUpload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fu, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := fu
	return &out, nil
}

func (m *Memory) ListFileUploads(_ context.Context) ([]unit.FileUpload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]unit.FileUpload, 0, len(m.files))
	for _, fu := range m.files {
		out = append(out, fu)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteFileUpload cascades to the upload's events and metrics. Canonical
// unit rows stay: they may still be backed by other files.
func (m *Memory) DeleteFileUpload(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return ErrNotFound
	}
	delete(m.files, id)
	delete(m.metrics, id)

	kept := m.events[:0]
	for _, ev := range m.events {
		if ev.FileUploadID == id {
			delete(m.eventKey, eventKeyOf(&ev))
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return nil
}

func (m *Memory) GetUnit(_ context.Context, trgid string) (*unit.UnitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.units[trgid]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

func (m *Memory) PutUnit(_ context.Context, rec *unit.UnitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[rec.TRGID] = *rec
	return nil
}

func (m *Memory) ListUnits(_ context.Context, f UnitFilter) ([]unit.UnitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []unit.UnitRecord
	for _, rec := range m.units {
		r := rec
		if matchUnit(&r, f) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TRGID < out[j].TRGID })
	return out, nil
}

func (m *Memory) CountUnits(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.units), nil
}

func (m *Memory) AppendEvent(_ context.Context, ev *unit.LifecycleEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := eventKeyOf(ev)
	if _, dup := m.eventKey[key]; dup {
		return false, nil
	}
	m.eventKey[key] = struct{}{}
	m.events = append(m.events, *ev)
	return true, nil
}

func (m *Memory) ListEvents(_ context.Context, f EventFilter) ([]unit.LifecycleEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []unit.LifecycleEvent
	for _, ev := range m.events {
		e := ev
		if matchEvent(&e, f) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) PutFileMetrics(_ context.Context, fm FileMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[fm.FileUploadID] = fm
	return nil
}

func (m *Memory) ListFileMetrics(_ context.Context) ([]FileMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FileMetrics, 0, len(m.metrics))
	for _, fm := range m.metrics {
		out = append(out, fm)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FileUploadID.String() < out[j].FileUploadID.String()
	})
	return out, nil
}

func eventKeyOf(ev *unit.LifecycleEvent) string {
	return ev.TRGID + "|" + ev.Stage.String() + "|" + ev.FileUploadID.String()
}

// WithBatch stages fn's mutations in an overlay and commits them under one
// lock when fn returns nil. An error discards the overlay, so a failed or
// cancelled batch leaves no trace.
func (m *Memory) WithBatch(_ context.Context, fn func(BatchStore) error) error {
	b := &memoryBatch{
		base:  m,
		units: make(map[string]unit.UnitRecord),
		keys:  make(map[string]struct{}),
	}
	if err := fn(b); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for trgid, rec := range b.units {
		m.units[trgid] = rec
	}
	for i := range b.events {
		m.eventKey[eventKeyOf(&b.events[i])] = struct{}{}
		m.events = append(m.events, b.events[i])
	}
	return nil
}

// memoryBatch overlays staged canonical writes on the base store. Reads see
// the batch's own writes first, then fall through.
type memoryBatch struct {
	base   *Memory
	units  map[string]unit.UnitRecord
	events []unit.LifecycleEvent
	keys   map[string]struct{}
}

func (b *memoryBatch) GetUnit(ctx context.Context, trgid string) (*unit.UnitRecord, error) {
	if rec, ok := b.units[trgid]; ok {
		out := rec
		return &out, nil
	}
	return b.base.GetUnit(ctx, trgid)
}

func (b *memoryBatch) PutUnit(_ context.Context, rec *unit.UnitRecord) error {
	b.units[rec.TRGID] = *rec
	return nil
}

func (b *memoryBatch) AppendEvent(_ context.Context, ev *unit.LifecycleEvent) (bool, error) {
	key := eventKeyOf(ev)
	if _, dup := b.keys[key]; dup {
		return false, nil
	}
	b.base.mu.RLock()
	_, dup := b.base.eventKey[key]
	b.base.mu.RUnlock()
	if dup {
		return false, nil
	}
	b.keys[key] = struct{}{}
	b.events = append(b.events, *ev)
	return true, nil
}
