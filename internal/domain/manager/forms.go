package manager

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/domain/group"
	"github.com/GriffinCanCode/formstack/internal/shared/types"
)

// HasForm reports whether the asset is open in any group
func (m *Manager) HasForm(assetName string) bool {
	return m.GetForm(assetName) != nil
}

// GetForm returns the open form for the asset, or nil
func (m *Manager) GetForm(assetName string) *form.Instance {
	f, ok := m.cache.Peek(assetName)
	if !ok || !f.IsOpen() {
		return nil
	}
	return f
}

// GetFormBySerial returns the open form with the serial id, or nil
func (m *Manager) GetFormBySerial(serialID int64) *form.Instance {
	for _, g := range m.groups {
		if f := g.GetBySerial(serialID); f != nil {
			return f
		}
	}
	return nil
}

// GetCachedForm returns the cached instance for the asset, open or not,
// without touching recency.
func (m *Manager) GetCachedForm(assetName string) *form.Instance {
	f, _ := m.cache.Peek(assetName)
	return f
}

// Close hides and closes the open form for the asset. The instance stays
// cached for reuse.
func (m *Manager) Close(assetName string) bool {
	f := m.GetForm(assetName)
	if f == nil {
		m.logger.Warn("close of form that is not open", zap.String("asset", assetName), zap.Error(form.ErrNotFound))
		return false
	}
	return m.CloseForm(f)
}

// CloseForm closes f in its owning group
func (m *Manager) CloseForm(f *form.Instance) bool {
	g := m.owner(f, "close")
	if g == nil {
		return false
	}
	if !g.RemoveAndClose(f) {
		return false
	}
	g.Refresh()
	m.observe(g)
	return true
}

// Refocus brings the open form for the asset to the top of its group
func (m *Manager) Refocus(assetName string) bool {
	f := m.GetForm(assetName)
	if f == nil {
		m.logger.Warn("refocus of form that is not open", zap.String("asset", assetName), zap.Error(form.ErrNotFound))
		return false
	}
	return m.RefocusForm(f)
}

// RefocusForm brings f to the top of its group
func (m *Manager) RefocusForm(f *form.Instance) bool {
	g := m.owner(f, "refocus")
	if g == nil {
		return false
	}
	return m.refocus(f, g)
}

func (m *Manager) refocus(f *form.Instance, g *group.Group) bool {
	if !g.Refocus(f) {
		return false
	}
	f.Refocus()
	return true
}

// owner resolves the group f is open in, logging why it cannot.
func (m *Manager) owner(f *form.Instance, op string) *group.Group {
	switch {
	case f == nil:
		m.logger.Warn(op+" of nil form", zap.Error(form.ErrValidation))
		return nil
	case f.IsReleased():
		m.logger.Warn(op+" of released form", zap.Stringer("form", f), zap.Error(form.ErrInvalidState))
		return nil
	case !f.IsOpen():
		m.logger.Warn(op+" of closed form", zap.Stringer("form", f), zap.Error(form.ErrNotFound))
		return nil
	}
	g, ok := m.groups[f.GroupName()]
	if !ok {
		m.logger.Warn(op+" of form in unknown group", zap.Stringer("form", f), zap.String("group", f.GroupName()), zap.Error(form.ErrNotFound))
		return nil
	}
	return g
}

// Describe snapshots one form. Covered and paused flags are only known for
// forms open in a group.
func (m *Manager) Describe(f *form.Instance) types.FormSnapshot {
	if f.IsOpen() {
		if g, ok := m.groups[f.GroupName()]; ok {
			for _, s := range g.Snapshot().Forms {
				if s.SerialID == f.SerialID() {
					return s
				}
			}
		}
	}
	return types.FormSnapshot{
		SerialID:           f.SerialID(),
		AssetName:          f.AssetName(),
		Group:              f.GroupName(),
		Depth:              f.Depth(),
		PauseCoveredUIForm: f.PauseCoveredUIForm(),
		Open:               f.IsOpen(),
		Released:           f.IsReleased(),
	}
}
