package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileCollection keeps one entity type as a JSON array in a single document.
// Every mutation reads the whole array, changes it in memory and writes the
// whole array back. Nothing serializes concurrent cycles, so two writers can
// lose each other's update; wrap with Serialized to prevent that.
type FileCollection[T Record] struct {
	path string
}

func NewFileCollection[T Record](dir, name string) *FileCollection[T] {
	return &FileCollection[T]{path: filepath.Join(dir, name)}
}

func (c *FileCollection[T]) Path() string {
	return c.path
}

func (c *FileCollection[T]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.load()
}

func (c *FileCollection[T]) Append(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	records, err := c.load()
	if err != nil {
		return zero, err
	}

	for _, existing := range records {
		if existing.RecordID() == rec.RecordID() {
			return zero, ErrDuplicateID
		}
	}

	records = append(records, rec)
	if err := c.save(records); err != nil {
		return zero, err
	}
	return rec, nil
}

// FindByID scans the whole array; with duplicate ids the last match wins.
func (c *FileCollection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	records, err := c.load()
	if err != nil {
		return zero, err
	}

	result, found := zero, false
	for _, rec := range records {
		if rec.RecordID() == id {
			result, found = rec, true
		}
	}
	if !found {
		return zero, ErrNotFound
	}
	return result, nil
}

// UpdateByID applies mutate to every record carrying id and returns the last
// one in array order.
func (c *FileCollection[T]) UpdateByID(ctx context.Context, id string, mutate Mutator[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	records, err := c.load()
	if err != nil {
		return zero, err
	}

	result, found := zero, false
	for i := range records {
		if records[i].RecordID() != id {
			continue
		}
		if err := mutate(&records[i]); err != nil {
			return zero, err
		}
		if records[i].RecordID() != id {
			return zero, fmt.Errorf("update %s: record id changed to %s", id, records[i].RecordID())
		}
		result, found = records[i], true
	}
	if !found {
		return zero, ErrNotFound
	}

	if err := c.save(records); err != nil {
		return zero, err
	}
	return result, nil
}

// DeleteByID removes every record carrying id and returns the last one
// removed.
func (c *FileCollection[T]) DeleteByID(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	records, err := c.load()
	if err != nil {
		return zero, err
	}

	kept := make([]T, 0, len(records))
	result, found := zero, false
	for _, rec := range records {
		if rec.RecordID() == id {
			result, found = rec, true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return zero, ErrNotFound
	}

	if removed := len(records) - len(kept); removed > 1 {
		logrus.WithFields(logrus.Fields{
			"path":    c.path,
			"id":      id,
			"removed": removed,
		}).Warn("Deleted duplicate records sharing one id")
	}

	if err := c.save(kept); err != nil {
		return zero, err
	}
	return result, nil
}

func (c *FileCollection[T]) load() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.path, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// save replaces the document through a synced temp file and a rename, so a
// reader or a crash never observes a truncated array.
func (c *FileCollection[T]) save(records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.path, err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", c.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", c.path, err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", c.path, err)
	}
	return nil
}
