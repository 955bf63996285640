// Package task serves the coursework listings ("tugas") kept in a JSON file
package task

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const allKey = "tugas:all"

// Catalogue holds every task in memory and writes the whole list back to
// disk after each addition.
type Catalogue struct {
	mu    sync.RWMutex
	path  string
	tasks []model.Task

	results    persist.CacheStore
	resultsTTL time.Duration
}

// Open loads the catalogue at path. A missing file is an empty catalogue.
func Open(path string) (*Catalogue, error) {
	const op = "task.Open"

	c := &Catalogue{path: path, tasks: []model.Task{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return c, nil
	}

	if err := json.Unmarshal(data, &c.tasks); err != nil {
		return nil, fmt.Errorf("%s: failed to decode %s, %w", op, path, err)
	}

	return c, nil
}

// CacheResults keeps listing results in store for ttl. Add drops the
// entries it makes stale.
func (c *Catalogue) CacheResults(store persist.CacheStore, ttl time.Duration) *Catalogue {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = store
	c.resultsTTL = ttl
	return c
}

func categoryKey(category string) string {
	return "tugas:category:" + strings.ToLower(category)
}

func (c *Catalogue) All() []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cached(allKey, func() []model.Task {
		out := make([]model.Task, len(c.tasks))
		copy(out, c.tasks)
		return out
	})
}

// ByCategory returns the tasks of one category, matched case-insensitively.
// An unknown category yields an empty list.
func (c *Catalogue) ByCategory(category string) []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cached(categoryKey(category), func() []model.Task {
		out := []model.Task{}
		for _, t := range c.tasks {
			if strings.EqualFold(t.Category, category) {
				out = append(out, t)
			}
		}
		return out
	})
}

// cached must be called with c.mu held. It always returns a slice the
// caller owns.
func (c *Catalogue) cached(key string, build func() []model.Task) []model.Task {
	if c.results == nil {
		return build()
	}

	var hit []model.Task
	if err := c.results.Get(key, &hit); err == nil {
		return append([]model.Task{}, hit...)
	}

	out := build()
	if err := c.results.Set(key, append([]model.Task{}, out...), c.resultsTTL); err != nil {
		zap.L().Warn("Failed to cache task listing", zap.Error(err), zap.String("key", key))
	}

	return out
}

// forget drops the listings that t appears in. Must be called with c.mu
// held for writing.
func (c *Catalogue) forget(t model.Task) {
	if c.results == nil {
		return
	}

	for _, key := range []string{allKey, categoryKey(t.Category)} {
		if err := c.results.Delete(key); err != nil {
			zap.L().Debug("Task listing was not cached", zap.Error(err), zap.String("key", key))
		}
	}
}

// Add appends t and persists the catalogue. On a write failure the
// in-memory list is left unchanged.
func (c *Catalogue) Add(t model.Task) error {
	const op = "task.Add"

	c.mu.Lock()
	defer c.mu.Unlock()

	next := append(c.tasks[:len(c.tasks):len(c.tasks)], t)
	if err := c.write(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.tasks = next
	c.forget(t)
	return nil
}

func (c *Catalogue) write(tasks []model.Task) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), c.path)
}
