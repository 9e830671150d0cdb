// Package zoo resolves model names to pretrained checkpoint files. Entries
// come from a local YAML catalog and/or a repository collection; resolved
// entries are verified once and kept in a bounded runtime cache evicted by
// least recent use.
package zoo

import (
	"container/heap"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/world-in-progress/mimir/config"
	"github.com/world-in-progress/mimir/db"
	dbmongo "github.com/world-in-progress/mimir/db/mongo"
)

const catalogTable = "catalog"

type (
	entryEntry struct {
		index int
		entry *Entry
	}

	entryHeap []*entryEntry

	Zoo struct {
		dir        string
		cacheSize  int
		entryCache sync.Map
		heap       entryHeap
		repo       db.Repository // optional, nil for catalog-file-only zoos
		catalog    map[string]*Entry

		mu sync.RWMutex
	}
)

var (
	defaultZoo  *Zoo
	defaultOnce sync.Once
)

func NewZoo(cfg config.ZooConfig, repo db.Repository) (*Zoo, error) {
	z := &Zoo{
		dir:        cfg.Dir,
		cacheSize:  cfg.CacheSize,
		entryCache: sync.Map{},
		repo:       repo,
		catalog:    make(map[string]*Entry),
		heap:       make(entryHeap, 0),
	}
	if z.cacheSize <= 0 {
		z.cacheSize = 16
	}

	if cfg.Catalog != "" {
		catalog, err := loadCatalog(cfg.Catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load zoo catalog: %v", err)
		}
		z.catalog = catalog
	}

	heap.Init(&z.heap)
	return z, nil
}

// NewMongoZoo builds a zoo whose catalog lives in the shared Mongo database,
// with the catalog collection indexes ensured.
func NewMongoZoo(ctx context.Context, cfg config.ZooConfig) (*Zoo, error) {
	repo, err := dbmongo.NewCatalogRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare catalog repository: %v", err)
	}
	return NewZoo(cfg, repo)
}

// Default is the process-wide zoo built from the ambient configuration,
// without a repository.
func Default() *Zoo {
	defaultOnce.Do(func() {
		z, err := NewZoo(config.LoadZooConfig(), nil)
		if err != nil {
			// fall back to an empty zoo so lookups degrade to errors
			z, _ = NewZoo(config.ZooConfig{}, nil)
		}
		defaultZoo = z
	})
	return defaultZoo
}

// RegisterEntry records a catalog entry, in the repository when one is
// attached, otherwise in the in-memory catalog.
func (z *Zoo) RegisterEntry(e Entry) (string, error) {
	if e.Name == "" {
		return "", fmt.Errorf("catalog entry requires a name")
	}
	e.ID = e.Name + "-" + uuid.New().String()

	if z.repo == nil {
		z.mu.Lock()
		defer z.mu.Unlock()
		if _, exists := z.catalog[e.Name]; exists {
			return "", fmt.Errorf("catalog entry %s already registered", e.Name)
		}
		z.catalog[e.Name] = &e
		return e.ID, nil
	}

	ctx := context.Background()
	if _, err := z.repo.Create(ctx, catalogTable, e.toRecord()); err != nil {
		return "", fmt.Errorf("failed to record catalog entry %s: %v", e.Name, err)
	}
	return e.ID, nil
}

// CheckpointPath resolves a model name to a verified local checkpoint file.
func (z *Zoo) CheckpointPath(name string) (string, error) {
	for {
		// resolve through cache if the entry is active
		if val, loaded := z.entryCache.Load(name); loaded && val != nil {
			entry := val.(*Entry)
			z.touchEntry(entry)
			return z.localPath(entry), nil
		}

		if err := z.activateEntry(name); err != nil {
			return "", err
		}
	}
}

// ActiveEntryNum counts all active entries in the cache.
func (z *Zoo) ActiveEntryNum() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.heap.Len()
}

// EntryRecordNum counts all catalog entries, repository included.
func (z *Zoo) EntryRecordNum() (int64, error) {
	z.mu.RLock()
	local := int64(len(z.catalog))
	z.mu.RUnlock()

	if z.repo == nil {
		return local, nil
	}

	ctx := context.Background()
	count, err := z.repo.Count(ctx, catalogTable, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count catalog records: %v", err)
	}
	return local + count, nil
}

// Shrink clears the cache to half its size.
func (z *Zoo) Shrink() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.shrinkLocked()
}

func (z *Zoo) localPath(e *Entry) string {
	if filepath.IsAbs(e.Path) {
		return e.Path
	}
	return filepath.Join(z.dir, e.Path)
}

// activateEntry verifies a catalog entry and moves it into the runtime cache.
func (z *Zoo) activateEntry(name string) error {
	// check if is active
	if _, loaded := z.entryCache.LoadOrStore(name, nil); loaded {
		return nil
	}

	entry, err := z.lookup(name)
	if err != nil {
		z.entryCache.Delete(name)
		return err
	}

	if err := z.verify(entry); err != nil {
		z.entryCache.Delete(name)
		return err
	}

	z.entryCache.Store(name, entry)
	z.addToHeap(entry)
	return nil
}

// lookup finds the catalog entry for a model name, preferring the local
// catalog over the repository.
func (z *Zoo) lookup(name string) (*Entry, error) {
	z.mu.RLock()
	entry, ok := z.catalog[name]
	z.mu.RUnlock()
	if ok {
		return entry, nil
	}

	if z.repo == nil {
		return nil, fmt.Errorf("no catalog entry for model (%s)", name)
	}

	ctx := context.Background()
	record, err := z.repo.ReadOne(ctx, catalogTable, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("no catalog entry for model (%s): %v", name, err)
	}
	return entryFromRecord(record), nil
}

// verify checks that the checkpoint file exists and matches its digest.
func (z *Zoo) verify(e *Entry) error {
	path := z.localPath(e)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("checkpoint for %s not available at %s: %v", e.Name, path, err)
	}
	defer f.Close()

	if e.SHA256 == "" {
		return nil
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("failed to hash checkpoint for %s: %v", e.Name, err)
	}
	if digest := hex.EncodeToString(h.Sum(nil)); digest != e.SHA256 {
		return fmt.Errorf("checkpoint digest mismatch for %s: got %s, want %s", e.Name, digest, e.SHA256)
	}
	return nil
}

// DeactivateEntry drops an entry from the runtime cache. The next lookup
// verifies it again.
func (z *Zoo) DeactivateEntry(name string) {
	val, loaded := z.entryCache.LoadAndDelete(name)
	if !loaded || val == nil {
		return
	}
	z.removeFromHeap(val.(*Entry))
}

func (z *Zoo) shrinkLocked() {
	toSize := z.cacheSize / 2
	if toSize == 0 {
		toSize = 1
	}

	if z.heap.Len() <= z.cacheSize {
		return
	}

	heap.Init(&z.heap)
	for z.heap.Len() > toSize {
		entry := heap.Pop(&z.heap).(*entryEntry)
		z.entryCache.Delete(entry.entry.Name)
	}
}

func (z *Zoo) addToHeap(entry *Entry) {
	z.mu.Lock()
	defer z.mu.Unlock()

	entry.touch()
	heap.Push(&z.heap, &entryEntry{entry: entry})
	z.shrinkLocked()
}

// touchEntry refreshes the entry's call time under the heap lock; Less reads
// call times under the same lock.
func (z *Zoo) touchEntry(entry *Entry) {
	z.mu.Lock()
	defer z.mu.Unlock()

	entry.touch()
	for _, e := range z.heap {
		if e.entry == entry {
			heap.Fix(&z.heap, e.index)
			break
		}
	}
}

func (z *Zoo) removeFromHeap(entry *Entry) {
	z.mu.Lock()
	defer z.mu.Unlock()

	for i, e := range z.heap {
		if e.entry == entry {
			heap.Remove(&z.heap, i)
			break
		}
	}
}

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	return h[i].entry.GetCallTime().Before(h[j].entry.GetCallTime())
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	entry := x.(*entryEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[0 : n-1]
	return entry
}
