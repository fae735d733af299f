package manager

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/domain/asset"
	"github.com/GriffinCanCode/formstack/internal/domain/cache"
	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/domain/group"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formstack/internal/shared/dispatch"
	"github.com/GriffinCanCode/formstack/internal/shared/id"
	"github.com/GriffinCanCode/formstack/internal/shared/types"
)

// Instantiator builds the display root for a loaded document
type Instantiator interface {
	Instantiate(doc *asset.Document) (form.Root, error)
}

// InstantiatorFunc adapts a function to Instantiator
type InstantiatorFunc func(doc *asset.Document) (form.Root, error)

func (f InstantiatorFunc) Instantiate(doc *asset.Document) (form.Root, error) {
	return f(doc)
}

// LogicFactory builds the logic sink for a loaded document
type LogicFactory interface {
	New(doc *asset.Document) (form.Logic, error)
}

// LogicFactoryFunc adapts a function to LogicFactory
type LogicFactoryFunc func(doc *asset.Document) (form.Logic, error)

func (f LogicFactoryFunc) New(doc *asset.Document) (form.Logic, error) {
	return f(doc)
}

// EventSink receives every lifecycle transition. It runs on the UI goroutine
// and must not block.
type EventSink func(event types.FormEvent)

// Config is applied when the manager is created
type Config struct {
	CacheCapacity int
	StartSerialID int64
}

// Settings are the runtime adjustable values of Config
type Settings struct {
	CacheCapacity int
	StartSerialID int64
}

// Manager orchestrates groups, the reuse cache and form creation.
//
// All methods must be called from the goroutine that calls Tick. Other
// goroutines reach the manager through Queue().Invoke.
type Manager struct {
	groups  map[string]*group.Group
	cache   *cache.Cache
	serial  *id.Serial
	loading map[string]*load

	loader       asset.Loader
	instantiator Instantiator
	logic        LogicFactory
	queue        *dispatch.Queue
	metrics      *monitoring.Metrics
	events       EventSink
	logger       *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	purging  bool
	shutdown bool
}

// NewManager creates a manager loading assets through loader
func NewManager(cfg Config, loader asset.Loader, logger *zap.Logger) (*Manager, error) {
	if loader == nil {
		return nil, fmt.Errorf("asset loader is required: %w", form.ErrValidation)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		groups:  make(map[string]*group.Group),
		serial:  id.NewSerial(cfg.StartSerialID),
		loading: make(map[string]*load),
		loader:  loader,
		instantiator: InstantiatorFunc(func(doc *asset.Document) (form.Root, error) {
			return asset.Instantiate(doc)
		}),
		logic: LogicFactoryFunc(func(*asset.Document) (form.Logic, error) {
			return form.BaseLogic{}, nil
		}),
		queue:  dispatch.NewQueue(),
		logger: logger.Named("manager"),
		ctx:    ctx,
		cancel: cancel,
	}

	c, err := cache.New(cfg.CacheCapacity, m.onEvict, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	m.cache = c
	return m, nil
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	m.metrics.SetCache(m.cache.Len(), m.cache.Capacity())
	return m
}

// WithInstantiator replaces the default display root builder
func (m *Manager) WithInstantiator(i Instantiator) *Manager {
	m.instantiator = i
	return m
}

// WithLogicFactory replaces the default no-op logic
func (m *Manager) WithLogicFactory(f LogicFactory) *Manager {
	m.logic = f
	return m
}

// WithQueue shares a dispatch queue with other components
func (m *Manager) WithQueue(q *dispatch.Queue) *Manager {
	m.queue = q
	return m
}

// WithEventSink streams lifecycle transitions
func (m *Manager) WithEventSink(sink EventSink) *Manager {
	m.events = sink
	return m
}

// Queue returns the queue drained by Tick
func (m *Manager) Queue() *dispatch.Queue {
	return m.queue
}

// Tick runs queued continuations, then updates groups in depth order.
func (m *Manager) Tick(elapsed time.Duration) {
	m.queue.Drain()
	for _, g := range m.GetAllGroups() {
		g.Update(elapsed)
	}
}

// SetCacheCapacity resizes the cache, evicting least recently used forms
// immediately when shrinking.
func (m *Manager) SetCacheCapacity(capacity int) error {
	if err := m.cache.Resize(capacity); err != nil {
		m.logger.Warn("invalid cache capacity", zap.Int("capacity", capacity), zap.Error(err))
		return err
	}
	m.metrics.SetCache(m.cache.Len(), m.cache.Capacity())
	return nil
}

// RaiseSerialFloor moves the next serial id up. Lower values are ignored so
// ids stay unique.
func (m *Manager) RaiseSerialFloor(start int64) bool {
	if !m.serial.RaiseFloor(start) {
		if start < m.serial.Peek() {
			m.logger.Debug("ignoring lower serial start", zap.Int64("start", start), zap.Int64("next", m.serial.Peek()))
		}
		return false
	}
	m.logger.Info("serial floor raised", zap.Int64("next", start))
	return true
}

// ApplySettings applies reloaded settings
func (m *Manager) ApplySettings(s Settings) error {
	m.RaiseSerialFloor(s.StartSerialID)
	return m.SetCacheCapacity(s.CacheCapacity)
}

// CloseAndReleaseAll closes every open form with isShutdown set, without
// running the cascade, then releases every cached instance. Groups stay
// registered.
func (m *Manager) CloseAndReleaseAll() {
	for _, g := range m.GetAllGroups() {
		g.ShutdownAll(true)
		m.observe(g)
	}

	m.purging = true
	m.cache.Purge()
	m.purging = false
	m.metrics.SetCache(m.cache.Len(), m.cache.Capacity())
}

// Shutdown tears the manager down once: it releases everything, clears the
// group registry and fails pending opens with ErrShutdown. Later opens fail
// the same way.
func (m *Manager) Shutdown() {
	if m.shutdown {
		return
	}
	m.CloseAndReleaseAll()
	m.shutdown = true
	m.cancel()

	for assetName, l := range m.loading {
		l.fail(fmt.Errorf("open %q: %w", assetName, form.ErrShutdown))
	}
	clear(m.loading)

	for name := range m.groups {
		m.metrics.DeleteGroup(name)
	}
	clear(m.groups)

	m.logger.Info("form manager shut down")
}

// IsShutdown reports whether Shutdown ran
func (m *Manager) IsShutdown() bool {
	return m.shutdown
}

// Snapshot captures groups (in depth order), the cache and pending loads.
func (m *Manager) Snapshot() types.Snapshot {
	snap := types.Snapshot{
		Groups: make([]types.GroupSnapshot, 0, len(m.groups)),
		Cache: types.CacheSnapshot{
			Capacity: m.cache.Capacity(),
			Entries:  make([]types.FormSnapshot, 0, m.cache.Len()),
		},
		Loading: make([]string, 0, len(m.loading)),
	}
	for _, g := range m.GetAllGroups() {
		snap.Groups = append(snap.Groups, g.Snapshot())
	}
	for _, f := range m.cache.Entries() {
		snap.Cache.Entries = append(snap.Cache.Entries, m.Describe(f))
	}
	for assetName := range m.loading {
		snap.Loading = append(snap.Loading, assetName)
	}
	sort.Strings(snap.Loading)
	return snap
}

// Stats returns manager statistics
func (m *Manager) Stats() types.Stats {
	open := 0
	for _, g := range m.groups {
		open += g.Count()
	}
	return types.Stats{
		Groups:       len(m.groups),
		OpenForms:    open,
		CachedForms:  m.cache.Len(),
		Capacity:     m.cache.Capacity(),
		LoadsPending: len(m.loading),
		NextSerialID: m.serial.Peek(),
	}
}

// onEvict detaches an evicted form that is still open before the cache
// releases it.
func (m *Manager) onEvict(f *form.Instance) {
	if !m.purging {
		m.metrics.IncEvictions()
	}
	if !f.IsOpen() {
		return
	}
	g, ok := m.groups[f.GroupName()]
	if !ok {
		return
	}
	m.logger.Warn("evicting open form", zap.Stringer("form", f), zap.String("group", g.Name()))
	g.RemoveAndClose(f)
	g.Refresh()
	m.observe(g)
}

// onTransition forwards form notifications to metrics and the event sink.
func (m *Manager) onTransition(f *form.Instance, t form.Transition) {
	m.metrics.RecordTransition(string(t))
	if m.events == nil {
		return
	}
	m.events(types.FormEvent{
		ID:         id.NewEventID().String(),
		Transition: string(t),
		SerialID:   f.SerialID(),
		AssetName:  f.AssetName(),
		Group:      f.GroupName(),
		Depth:      f.Depth(),
		Timestamp:  time.Now(),
	})
}

func (m *Manager) observe(g *group.Group) {
	m.metrics.SetFormsOpen(g.Name(), g.Count())
}
