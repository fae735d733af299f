package manager

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/domain/asset"
	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/domain/group"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formstack/internal/shared/future"
	"github.com/GriffinCanCode/formstack/internal/shared/utils"
)

// openRequest is one Open call waiting on a load
type openRequest struct {
	groupName    string
	pauseCovered bool
	result       *future.Future[*form.Instance]
}

// load is an in-flight asset load. Opens of the same asset issued while it
// runs join it instead of starting a second load.
type load struct {
	assetName string
	requests  []openRequest
}

func (l *load) fail(err error) {
	for _, r := range l.requests {
		r.result.Reject(err)
	}
}

// Open shows the form for assetName on top of groupName.
//
// A cached instance is reused synchronously and the returned future is
// already complete. Otherwise the asset is loaded in the background and the
// future completes during a later Tick. Failures are reported through the
// future only.
func (m *Manager) Open(assetName, groupName string, pauseCoveredUIForm bool) *future.Future[*form.Instance] {
	if m.shutdown {
		return future.Failed[*form.Instance](fmt.Errorf("open %q: %w", assetName, form.ErrShutdown))
	}

	g, err := m.validateOpen(assetName, groupName)
	if err != nil {
		m.logger.Warn("open rejected", zap.String("asset", assetName), zap.String("group", groupName), zap.Error(err))
		return future.Failed[*form.Instance](err)
	}

	req := openRequest{groupName: groupName, pauseCovered: pauseCoveredUIForm, result: future.New[*form.Instance]()}

	if l, ok := m.loading[assetName]; ok {
		m.logger.Debug("joining in-flight load", zap.String("asset", assetName), zap.String("group", groupName))
		l.requests = append(l.requests, req)
		return req.result
	}

	if f, ok := m.cache.TryGet(assetName); ok {
		m.metrics.RecordCacheLookup(true)
		m.reopen(f, g, pauseCoveredUIForm)
		req.result.Resolve(f)
		return req.result
	}

	m.metrics.RecordCacheLookup(false)
	m.startLoad(assetName, req)
	return req.result
}

// IsLoading reports whether a load for the asset is in flight
func (m *Manager) IsLoading(assetName string) bool {
	_, ok := m.loading[assetName]
	return ok
}

func (m *Manager) validateOpen(assetName, groupName string) (*group.Group, error) {
	if assetName == "" {
		return nil, fmt.Errorf("asset name is empty: %w", form.ErrValidation)
	}
	if err := utils.ValidateAssetName(assetName); err != nil {
		return nil, fmt.Errorf("%w: %w", form.ErrValidation, err)
	}
	if groupName == "" {
		return nil, fmt.Errorf("group name is empty: %w", form.ErrValidation)
	}
	g, ok := m.groups[groupName]
	if !ok {
		return nil, fmt.Errorf("group %q does not exist: %w", groupName, form.ErrValidation)
	}
	return g, nil
}

// reopen shows a cached instance in g. A form already open in g is brought
// to the top; a form open elsewhere is closed there first.
func (m *Manager) reopen(f *form.Instance, g *group.Group, pauseCoveredUIForm bool) {
	if pauseCoveredUIForm != f.PauseCoveredUIForm() {
		m.logger.Debug("pauseCoveredUIForm is fixed at creation, ignoring",
			zap.Stringer("form", f), zap.Bool("requested", pauseCoveredUIForm))
	}

	if f.IsOpen() {
		if f.GroupName() == g.Name() {
			m.refocus(f, g)
			return
		}
		if prev, ok := m.groups[f.GroupName()]; ok {
			prev.RemoveAndClose(f)
			prev.Refresh()
			m.observe(prev)
		}
	}

	g.AddAndOpen(f)
	g.Refresh()
	m.observe(g)
}

func (m *Manager) startLoad(assetName string, req openRequest) {
	l := &load{assetName: assetName, requests: []openRequest{req}}
	m.loading[assetName] = l
	m.logger.Debug("loading asset", zap.String("asset", assetName))

	ctx := m.ctx
	go func() {
		timer := monitoring.NewLoadTimer(m.metrics)
		doc, err := m.loader.Load(ctx, assetName)
		status := "success"
		if err != nil {
			status = "error"
		}
		elapsed := timer.Stop(status)

		if postErr := m.queue.Post(func() { m.completeLoad(l, doc, err) }); postErr != nil {
			m.logger.Warn("dropping asset load result", zap.String("asset", assetName),
				zap.Duration("elapsed", elapsed), zap.Error(postErr))
		}
	}()
}

// completeLoad runs on the UI goroutine once the loader returned.
func (m *Manager) completeLoad(l *load, doc *asset.Document, err error) {
	if m.loading[l.assetName] != l {
		// Shutdown already failed the waiting opens.
		return
	}
	delete(m.loading, l.assetName)

	if err == nil {
		err = m.createAndOpen(l, doc)
	}
	if err != nil {
		if !errors.Is(err, form.ErrLoad) {
			err = fmt.Errorf("%w: %q: %w", form.ErrLoad, l.assetName, err)
		}
		m.logger.Warn("asset load failed", zap.String("asset", l.assetName), zap.Error(err))
		l.fail(err)
	}
}

// createAndOpen builds the instance, caches it and serves the waiting opens
// in call order.
func (m *Manager) createAndOpen(l *load, doc *asset.Document) error {
	root, err := m.instantiator.Instantiate(doc)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	logic, err := m.logic.New(doc)
	if err != nil {
		root.Destroy()
		return fmt.Errorf("logic: %w", err)
	}

	first := l.requests[0]
	f := form.New(m.logger)
	f.SetListener(m.onTransition)
	f.Init(m.serial.Next(), l.assetName, first.groupName, first.pauseCovered, logic, root)

	m.cache.Insert(f)
	m.metrics.SetCache(m.cache.Len(), m.cache.Capacity())
	m.logger.Info("form created", zap.Stringer("form", f), zap.Int("waiting", len(l.requests)))

	for _, r := range l.requests {
		if f.IsReleased() {
			// A zero capacity cache evicts the instance on the next insert; an
			// earlier waiter's callback may have caused one.
			r.result.Reject(fmt.Errorf("open %q: form released before open: %w", l.assetName, form.ErrInvalidState))
			continue
		}
		g, ok := m.groups[r.groupName]
		if !ok {
			r.result.Reject(fmt.Errorf("group %q removed while %q was loading: %w", r.groupName, l.assetName, form.ErrNotFound))
			continue
		}
		m.reopen(f, g, r.pauseCovered)
		r.result.Resolve(f)
	}
	return nil
}
