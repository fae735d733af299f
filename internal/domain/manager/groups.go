package manager

import (
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/domain/group"
	"github.com/GriffinCanCode/formstack/internal/shared/utils"
)

// HasGroup reports whether a group is registered
func (m *Manager) HasGroup(name string) bool {
	_, ok := m.groups[name]
	return ok
}

// GetGroup returns the named group, or nil
func (m *Manager) GetGroup(name string) *group.Group {
	return m.groups[name]
}

// GetAllGroups returns groups ordered by depth, then name.
func (m *Manager) GetAllGroups() []*group.Group {
	out := make([]*group.Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth() != out[j].Depth() {
			return out[i].Depth() < out[j].Depth()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// AddGroup registers a group drawn at the given layer depth. It reports
// false for an invalid or duplicate name.
func (m *Manager) AddGroup(name string, depth int) bool {
	if m.shutdown {
		m.logger.Warn("add group after shutdown", zap.String("group", name), zap.Error(form.ErrShutdown))
		return false
	}
	if err := utils.ValidateGroupName(name); err != nil {
		m.logger.Warn("invalid group name", zap.String("group", name), zap.Error(err))
		return false
	}
	if _, ok := m.groups[name]; ok {
		m.logger.Warn("group already exists", zap.String("group", name))
		return false
	}

	g := group.New(name, depth, m.logger)
	m.groups[name] = g
	m.observe(g)
	m.logger.Info("group added", zap.String("group", name), zap.Int("depth", depth))
	return true
}

// RemoveGroup unregisters a group. Forms still open in it are closed
// (without cascade) and stay cached.
func (m *Manager) RemoveGroup(name string) bool {
	g, ok := m.groups[name]
	if !ok {
		m.logger.Warn("remove of unknown group", zap.String("group", name), zap.Error(form.ErrNotFound))
		return false
	}
	if n := g.Count(); n > 0 {
		m.logger.Info("closing forms of removed group", zap.String("group", name), zap.Int("forms", n))
		g.ShutdownAll(false)
	}
	delete(m.groups, name)
	m.metrics.DeleteGroup(name)
	return true
}

// PauseGroup pauses every form of a group
func (m *Manager) PauseGroup(name string) bool {
	return m.setGroupPaused(name, true)
}

// ResumeGroup lifts a group pause
func (m *Manager) ResumeGroup(name string) bool {
	return m.setGroupPaused(name, false)
}

func (m *Manager) setGroupPaused(name string, paused bool) bool {
	g, ok := m.groups[name]
	if !ok {
		m.logger.Warn("pause of unknown group", zap.String("group", name), zap.Error(form.ErrNotFound))
		return false
	}
	if g.Paused() == paused {
		return true
	}
	g.SetPaused(paused)
	g.Refresh()
	return true
}
