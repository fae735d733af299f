// Package group implements a named stack of open forms and the cascade that
// decides which of them is interactive, covered or paused.
package group

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/shared/types"
)

// entry wraps an open form with its cascade state. count is the group size
// the form was last told about.
type entry struct {
	form    *form.Instance
	covered bool
	paused  bool
	count   int
}

// Group is an ordered stack of forms. Index 0 is the bottom, so an entry's
// index is its depth; the last entry is the top.
type Group struct {
	name    string
	depth   int
	paused  bool
	entries []*entry
	logger  *zap.Logger
}

// New creates an empty group
func New(name string, depth int, logger *zap.Logger) *Group {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Group{
		name:   name,
		depth:  depth,
		logger: logger.Named("group").With(zap.String("group", name)),
	}
}

func (g *Group) Name() string {
	return g.name
}

// Depth orders groups relative to each other.
func (g *Group) Depth() int {
	return g.depth
}

func (g *Group) Paused() bool {
	return g.paused
}

// SetPaused sets the group-level pause. The owner must Refresh afterwards.
func (g *Group) SetPaused(paused bool) {
	g.paused = paused
}

func (g *Group) Count() int {
	return len(g.entries)
}

// Top returns the most recently opened or refocused form.
func (g *Group) Top() *form.Instance {
	if len(g.entries) == 0 {
		return nil
	}
	return g.entries[len(g.entries)-1].form
}

// Forms returns the open forms, top first.
func (g *Group) Forms() []*form.Instance {
	forms := make([]*form.Instance, 0, len(g.entries))
	for i := len(g.entries) - 1; i >= 0; i-- {
		forms = append(forms, g.entries[i].form)
	}
	return forms
}

// Contains reports whether a form with the serial id is open here.
func (g *Group) Contains(serialID int64) bool {
	return g.indexOfSerial(serialID) >= 0
}

// ContainsAsset reports whether a form for the asset is open here.
func (g *Group) ContainsAsset(assetName string) bool {
	return g.Get(assetName) != nil
}

// GetBySerial returns the open form with the serial id, or nil.
func (g *Group) GetBySerial(serialID int64) *form.Instance {
	if i := g.indexOfSerial(serialID); i >= 0 {
		return g.entries[i].form
	}
	return nil
}

// Get returns the top-most open form for the asset, or nil.
func (g *Group) Get(assetName string) *form.Instance {
	for i := len(g.entries) - 1; i >= 0; i-- {
		if g.entries[i].form.AssetName() == assetName {
			return g.entries[i].form
		}
	}
	return nil
}

// AddAndOpen pushes the form on top and opens it.
func (g *Group) AddAndOpen(f *form.Instance) {
	if g.indexOfSerial(f.SerialID()) >= 0 {
		g.logger.Warn("form already in group", zap.Stringer("form", f))
		return
	}
	g.entries = append(g.entries, &entry{form: f})
	g.assignDepths()
	f.Open(g.name)
}

// RemoveAndClose hides the form (cover, then pause) if needed, unlinks it and
// closes it. It reports whether the form was found.
func (g *Group) RemoveAndClose(f *form.Instance) bool {
	i := g.indexOfSerial(f.SerialID())
	if i < 0 {
		g.logger.Warn("form not in group", zap.Stringer("form", f), zap.Error(form.ErrNotFound))
		return false
	}

	e := g.entries[i]
	if !e.covered {
		e.covered = true
		f.Cover()
	}
	if !e.paused {
		e.paused = true
		f.Pause()
	}

	g.unlink(i)
	g.assignDepths()
	f.Close(false)
	return true
}

// Refocus moves the form to the top and refreshes the cascade. The caller
// fires the form's Refocus notification.
func (g *Group) Refocus(f *form.Instance) bool {
	i := g.indexOfSerial(f.SerialID())
	if i < 0 {
		g.logger.Warn("refocus of form not in group", zap.Stringer("form", f), zap.Error(form.ErrNotFound))
		return false
	}

	e := g.entries[i]
	g.unlink(i)
	g.entries = append(g.entries, e)
	g.assignDepths()
	g.Refresh()
	return true
}

// Refresh recomputes cover and pause state from the top down. Transitions
// fire only when state actually changes. Callbacks may mutate the group; a
// form no longer in it is skipped.
func (g *Group) Refresh() {
	pause := g.paused
	cover := false

	for _, e := range g.topDown() {
		if !g.holds(e) {
			continue
		}
		if pause {
			if !e.covered {
				e.covered = true
				e.form.Cover()
			}
			if !e.paused && g.holds(e) {
				e.paused = true
				e.form.Pause()
			}
			continue
		}

		if e.paused {
			e.paused = false
			e.form.Resume()
		}
		if e.form.PauseCoveredUIForm() {
			pause = true
		}

		if cover {
			if !e.covered && g.holds(e) {
				e.covered = true
				e.form.Cover()
			}
		} else {
			if e.covered && g.holds(e) {
				e.covered = false
				e.form.Reveal()
			}
			cover = true
		}
	}
}

// Update ticks forms from the top down, stopping at the first paused one.
// The forms to tick are fixed before the first callback; one closed or
// paused by an earlier callback is skipped.
func (g *Group) Update(elapsed time.Duration) {
	var active []*entry
	for _, e := range g.topDown() {
		if e.paused {
			break
		}
		active = append(active, e)
	}
	for _, e := range active {
		if !g.holds(e) || e.paused {
			continue
		}
		e.form.Update(elapsed)
	}
}

// ShutdownAll closes every form without running the cascade and empties the
// group.
func (g *Group) ShutdownAll(isShutdown bool) {
	entries := g.entries
	g.entries = nil
	for i := len(entries) - 1; i >= 0; i-- {
		entries[i].form.Close(isShutdown)
	}
}

// Snapshot captures the stack, top first.
func (g *Group) Snapshot() types.GroupSnapshot {
	snap := types.GroupSnapshot{
		Name:   g.name,
		Depth:  g.depth,
		Paused: g.paused,
		Forms:  make([]types.FormSnapshot, 0, len(g.entries)),
	}
	for i := len(g.entries) - 1; i >= 0; i-- {
		e := g.entries[i]
		snap.Forms = append(snap.Forms, types.FormSnapshot{
			SerialID:           e.form.SerialID(),
			AssetName:          e.form.AssetName(),
			Group:              g.name,
			Depth:              e.form.Depth(),
			Covered:            e.covered,
			Paused:             e.paused,
			PauseCoveredUIForm: e.form.PauseCoveredUIForm(),
			Open:               e.form.IsOpen(),
		})
	}
	return snap
}

func (g *Group) indexOfSerial(serialID int64) int {
	for i, e := range g.entries {
		if e.form.SerialID() == serialID {
			return i
		}
	}
	return -1
}

func (g *Group) unlink(i int) {
	copy(g.entries[i:], g.entries[i+1:])
	g.entries[len(g.entries)-1] = nil
	g.entries = g.entries[:len(g.entries)-1]
}

// topDown copies the entries, top first
func (g *Group) topDown() []*entry {
	out := make([]*entry, len(g.entries))
	for i, e := range g.entries {
		out[len(out)-1-i] = e
	}
	return out
}

// holds reports whether e is still linked in the group
func (g *Group) holds(e *entry) bool {
	return g.indexOf(e) >= 0
}

// assignDepths sets each form's depth to its index, notifying forms whose
// depth moved or whose group size changed since their last notification.
func (g *Group) assignDepths() {
	count := len(g.entries)
	for _, e := range append([]*entry(nil), g.entries...) {
		i := g.indexOf(e)
		if i < 0 {
			continue
		}
		if e.form.Depth() != i || e.count != count {
			e.count = count
			e.form.DepthChanged(count, i)
		}
	}
}

func (g *Group) indexOf(e *entry) int {
	for i, x := range g.entries {
		if x == e {
			return i
		}
	}
	return -1
}
