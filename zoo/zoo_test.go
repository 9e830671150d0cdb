package zoo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/world-in-progress/mimir/config"
)

// memoryRepository is an in-memory stand-in for the Mongo repository.
type memoryRepository struct {
	tables map[string][]map[string]any
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{tables: make(map[string][]map[string]any)}
}

func (r *memoryRepository) Create(ctx context.Context, table string, record map[string]any) (string, error) {
	r.tables[table] = append(r.tables[table], record)
	return record["_id"].(string), nil
}

func (r *memoryRepository) matches(record, filter map[string]any) bool {
	for k, v := range filter {
		if record[k] != v {
			return false
		}
	}
	return true
}

func (r *memoryRepository) ReadOne(ctx context.Context, table string, filter map[string]any) (map[string]any, error) {
	for _, record := range r.tables[table] {
		if r.matches(record, filter) {
			return record, nil
		}
	}
	return nil, fmt.Errorf("no record matches filter %v", filter)
}

func (r *memoryRepository) ReadAll(ctx context.Context, table string, filter map[string]any) ([]map[string]any, error) {
	var results []map[string]any
	for _, record := range r.tables[table] {
		if r.matches(record, filter) {
			results = append(results, record)
		}
	}
	return results, nil
}

func (r *memoryRepository) Update(ctx context.Context, table string, filter map[string]any, update map[string]any) error {
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, table string, filter map[string]any) error {
	return nil
}

func (r *memoryRepository) Count(ctx context.Context, table string, filter map[string]any) (int64, error) {
	var count int64
	for _, record := range r.tables[table] {
		if filter == nil || r.matches(record, filter) {
			count++
		}
	}
	return count, nil
}

func writeCheckpointFile(t *testing.T, dir, name string) (path, digest string) {
	t.Helper()
	path = filepath.Join(dir, name)
	payload := []byte("weights of " + name)
	assert.NoError(t, os.WriteFile(path, payload, 0o644))
	sum := sha256.Sum256(payload)
	return path, hex.EncodeToString(sum[:])
}

func TestCatalogFile(t *testing.T) {
	dir := t.TempDir()
	_, digest := writeCheckpointFile(t, dir, "efficientnet_lite0.bin")

	catalogPath := filepath.Join(dir, "catalog.yaml")
	catalog := fmt.Sprintf(`entries:
  - name: efficientnet_lite0
    path: efficientnet_lite0.bin
    sha256: %s
  - name: mixer_s16
    path: mixer_s16.bin
    description: token mixing baseline
`, digest)
	assert.NoError(t, os.WriteFile(catalogPath, []byte(catalog), 0o644))

	z, err := NewZoo(config.ZooConfig{Catalog: catalogPath, Dir: dir, CacheSize: 4}, nil)
	assert.NoError(t, err)

	num, err := z.EntryRecordNum()
	assert.NoError(t, err)
	assert.Equal(t, int64(2), num)

	// verified entry resolves to its local file
	path, err := z.CheckpointPath("efficientnet_lite0")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "efficientnet_lite0.bin"), path)
	assert.Equal(t, 1, z.ActiveEntryNum())

	// entry without a file on disk fails to activate
	_, err = z.CheckpointPath("mixer_s16")
	assert.Error(t, err)

	// unknown model
	_, err = z.CheckpointPath("resnet50")
	assert.Error(t, err)
}

func TestDigestMismatch(t *testing.T) {
	dir := t.TempDir()
	writeCheckpointFile(t, dir, "mixer_s16.bin")

	z, err := NewZoo(config.ZooConfig{Dir: dir}, nil)
	assert.NoError(t, err)

	_, err = z.RegisterEntry(Entry{Name: "mixer_s16", Path: "mixer_s16.bin", SHA256: "deadbeef"})
	assert.NoError(t, err)

	_, err = z.CheckpointPath("mixer_s16")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestRepositoryLookup(t *testing.T) {
	dir := t.TempDir()
	_, digest := writeCheckpointFile(t, dir, "mobilenetv3_small.bin")

	repo := newMemoryRepository()
	z, err := NewZoo(config.ZooConfig{Dir: dir, CacheSize: 4}, repo)
	assert.NoError(t, err)

	id, err := z.RegisterEntry(Entry{Name: "mobilenetv3_small", Path: "mobilenetv3_small.bin", SHA256: digest})
	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	num, err := z.EntryRecordNum()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), num)

	path, err := z.CheckpointPath("mobilenetv3_small")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mobilenetv3_small.bin"), path)

	// resolving again hits the cache
	path2, err := z.CheckpointPath("mobilenetv3_small")
	assert.NoError(t, err)
	assert.Equal(t, path, path2)

	z.DeactivateEntry("mobilenetv3_small")
	assert.Equal(t, 0, z.ActiveEntryNum())
}

func TestCacheEviction(t *testing.T) {
	dir := t.TempDir()

	z, err := NewZoo(config.ZooConfig{Dir: dir, CacheSize: 1}, nil)
	assert.NoError(t, err)

	for _, name := range []string{"model_a", "model_b", "model_c"} {
		writeCheckpointFile(t, dir, name+".bin")
		_, err := z.RegisterEntry(Entry{Name: name, Path: name + ".bin"})
		assert.NoError(t, err)
		_, err = z.CheckpointPath(name)
		assert.NoError(t, err)
	}

	// the cache never grows beyond its configured size
	assert.LessOrEqual(t, z.ActiveEntryNum(), 1)

	// evicted entries can still be resolved, they just re-verify
	_, err = z.CheckpointPath("model_a")
	assert.NoError(t, err)
}

func TestConcurrentResolve(t *testing.T) {
	dir := t.TempDir()

	z, err := NewZoo(config.ZooConfig{Dir: dir, CacheSize: 2}, nil)
	assert.NoError(t, err)

	names := []string{"model_a", "model_b", "model_c"}
	for _, name := range names {
		writeCheckpointFile(t, dir, name+".bin")
		_, err := z.RegisterEntry(Entry{Name: name, Path: name + ".bin"})
		assert.NoError(t, err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				name := names[i%len(names)]
				if _, err := z.CheckpointPath(name); err != nil {
					t.Errorf("resolve %s failed: %v", name, err)
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, z.ActiveEntryNum(), 2)
}

func TestPrefetch(t *testing.T) {
	dir := t.TempDir()

	z, err := NewZoo(config.ZooConfig{Dir: dir, CacheSize: 8}, nil)
	assert.NoError(t, err)

	for _, name := range []string{"model_a", "model_b"} {
		writeCheckpointFile(t, dir, name+".bin")
		_, err := z.RegisterEntry(Entry{Name: name, Path: name + ".bin"})
		assert.NoError(t, err)
	}

	errs := z.Prefetch("model_a", "model_b", "model_missing")
	assert.Len(t, errs, 1)
	assert.Contains(t, errs, "model_missing")
	assert.Equal(t, 2, z.ActiveEntryNum())

	assert.Nil(t, z.Prefetch())
	assert.Nil(t, z.Prefetch("model_a"))
}
