// Package keywords loads the categorized keyword dictionary and synthesizes
// search queries from it.
package keywords

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// Dictionary holds the categorized token lists used for query synthesis.
// It is immutable after loading.
type Dictionary struct {
	Energies []string `yaml:"energies"`
	Subjects []string `yaml:"subjects"`
	Formats  []string `yaml:"formats"`
	Locales  []string `yaml:"locales"`
	Eras     []string `yaml:"eras"`
	Extras   []string `yaml:"extras"`
}

// Empty reports whether the dictionary has no tokens in any category.
func (d *Dictionary) Empty() bool {
	return len(d.Energies) == 0 && len(d.Subjects) == 0 && len(d.Formats) == 0 &&
		len(d.Locales) == 0 && len(d.Eras) == 0 && len(d.Extras) == 0
}

// Cache lazily loads a Dictionary from a YAML file and keeps it for the
// process lifetime. Concurrent first loads are collapsed into a single read.
type Cache struct {
	path  string
	group singleflight.Group

	mu   sync.RWMutex
	dict *Dictionary
}

// NewCache creates a Cache reading from the given YAML file path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Get returns the cached dictionary, loading it on first use.
func (c *Cache) Get() (*Dictionary, error) {
	c.mu.RLock()
	d := c.dict
	c.mu.RUnlock()
	if d != nil {
		return d, nil
	}

	v, err, _ := c.group.Do("load", func() (any, error) {
		c.mu.RLock()
		cached := c.dict
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		loaded, err := LoadFile(c.path)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.dict = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dictionary), nil
}

// LoadFile reads and parses a keyword dictionary from a YAML file.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}

	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse keywords file: %w", err)
	}
	return &d, nil
}
