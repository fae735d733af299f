package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// DefaultIncludePatterns select document files, optionally compressed.
var DefaultIncludePatterns = []string{
	"**/*.{yaml,yml,toml,json}",
	"**/*.{yaml,yml,toml,json}.{gz,zst}",
}

// DefaultExcludePatterns skip hidden files and directories.
var DefaultExcludePatterns = []string{
	"**/.*",
	"**/.*/**",
}

// formatPriority breaks ties when one asset name has several files.
var formatPriority = map[Format]int{
	FormatYAML: 0,
	FormatTOML: 1,
	FormatJSON: 2,
}

// Entry is one catalogued asset file
type Entry struct {
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	Format      Format      `json:"format"`
	Compression Compression `json:"compression,omitempty"`
	Size        int64       `json:"size"`
}

// Catalog indexes asset files under a root directory by asset name, the
// slash separated path relative to the root without extensions.
type Catalog struct {
	root    string
	include []string
	exclude []string
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCatalog creates an empty catalog. Nil pattern lists use the defaults.
func NewCatalog(root string, include, exclude []string, logger *zap.Logger) (*Catalog, error) {
	if include == nil {
		include = DefaultIncludePatterns
	}
	if exclude == nil {
		exclude = DefaultExcludePatterns
	}
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid asset pattern %q", p)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		root:    root,
		include: include,
		exclude: exclude,
		logger:  logger.Named("catalog"),
		entries: make(map[string]Entry),
	}, nil
}

// Root returns the catalogued directory
func (c *Catalog) Root() string {
	return c.root
}

// Scan walks the root directory and replaces the index.
func (c *Catalog) Scan(ctx context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("asset root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset root %s is not a directory", c.root)
	}

	var mu sync.Mutex
	found := make(map[string]Entry)

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, c.root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			c.logger.Debug("skipping unreadable path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !c.matches(rel) {
			return nil
		}

		name, format, compression := splitName(rel)
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entry := Entry{Name: name, Path: p, Format: format, Compression: compression, Size: info.Size()}

		mu.Lock()
		defer mu.Unlock()
		if prev, ok := found[name]; ok {
			if formatPriority[prev.Format] < formatPriority[format] ||
				(prev.Format == format && prev.Path < p) {
				c.logger.Warn("duplicate asset file ignored", zap.String("asset", name), zap.String("path", p))
				return nil
			}
			c.logger.Warn("duplicate asset file ignored", zap.String("asset", name), zap.String("path", prev.Path))
		}
		found[name] = entry
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan assets in %s: %w", c.root, err)
	}

	c.mu.Lock()
	c.entries = found
	c.mu.Unlock()

	c.logger.Info("asset catalog scanned", zap.String("root", c.root), zap.Int("assets", len(found)))
	return nil
}

// Lookup returns the file for an asset name
func (c *Catalog) Lookup(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// List returns all entries sorted by name
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) matches(rel string) bool {
	for _, p := range c.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	for _, p := range c.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
