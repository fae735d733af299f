package asset

import (
	"fmt"
)

// Root is the display object built from a document. Hosts render Layout;
// the form stack only needs its name and a way to tear it down.
type Root struct {
	doc       *Document
	destroyed bool
}

// Instantiate builds the display root for a loaded document.
func Instantiate(doc *Document) (*Root, error) {
	if doc == nil {
		return nil, fmt.Errorf("cannot instantiate a nil document")
	}
	return &Root{doc: doc}, nil
}

func (r *Root) Name() string {
	return r.doc.Name
}

func (r *Root) Title() string {
	return r.doc.Title
}

// Layout returns the layout tree, nil once destroyed.
func (r *Root) Layout() map[string]any {
	if r.destroyed {
		return nil
	}
	return r.doc.Layout
}

func (r *Root) Document() *Document {
	return r.doc
}

func (r *Root) Destroyed() bool {
	return r.destroyed
}

// Destroy drops the layout tree.
func (r *Root) Destroy() {
	r.destroyed = true
}
