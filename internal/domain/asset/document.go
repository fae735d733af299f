package asset

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Loader resolves an asset name to its form document. Implementations may
// block; the manager calls Load off the UI goroutine.
type Loader interface {
	Load(ctx context.Context, assetName string) (*Document, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, assetName string) (*Document, error)

func (f LoaderFunc) Load(ctx context.Context, assetName string) (*Document, error) {
	return f(ctx, assetName)
}

// Document describes one form asset: what to display and the optional script
// implementing its logic.
type Document struct {
	Name   string         `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Title  string         `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	Layout map[string]any `json:"layout,omitempty" yaml:"layout,omitempty" toml:"layout,omitempty"`
	Script string         `json:"script,omitempty" yaml:"script,omitempty" toml:"script,omitempty"`

	// Source records where the document was read from.
	Source string `json:"-" yaml:"-" toml:"-"`
}

var titlePolicy = bluemonday.StrictPolicy()

// normalize fills defaults and strips markup from the title, which the
// inspector echoes back to browsers.
func (d *Document) normalize(assetName, source string) {
	if d.Name == "" {
		d.Name = assetName
	}
	d.Title = strings.TrimSpace(titlePolicy.Sanitize(d.Title))
	if d.Title == "" {
		d.Title = d.Name
	}
	d.Source = source
}
