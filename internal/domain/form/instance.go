package form

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Instance is the lifecycle and identity record of one form.
//
// Instances are owned by the cache. A group holds a non-owning reference while
// the form is open, and the instance refers back to that group by name only.
type Instance struct {
	serialID     int64
	assetName    string
	groupName    string
	depth        int
	pauseCovered bool
	opened       bool
	released     bool

	logic    Logic
	root     Root
	listener Listener
	logger   *zap.Logger
}

// New allocates an uninitialized instance. Call Init before use.
func New(logger *zap.Logger) *Instance {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instance{depth: -1, logger: logger, released: true}
}

// Init wires identity, logic and display root and forwards OnInit.
func (f *Instance) Init(serialID int64, assetName, groupName string, pauseCovered bool, logic Logic, root Root) {
	f.serialID = serialID
	f.assetName = assetName
	f.groupName = groupName
	f.pauseCovered = pauseCovered
	f.logic = logic
	f.root = root
	f.released = false
	f.logger = f.logger.With(zap.Int64("serial", serialID), zap.String("asset", assetName))

	f.notify(TransitionInit, func(l Logic) { l.OnInit(f) })
}

// SetListener installs an observer for transitions.
func (f *Instance) SetListener(l Listener) {
	f.listener = l
}

func (f *Instance) SerialID() int64 {
	return f.serialID
}

func (f *Instance) AssetName() string {
	return f.assetName
}

// GroupName returns the owning group, or "" while the form is closed.
func (f *Instance) GroupName() string {
	return f.groupName
}

// Depth returns the 0-based rank in the owning group, 0 being the bottom.
func (f *Instance) Depth() int {
	return f.depth
}

// PauseCoveredUIForm reports whether forms below this one are paused.
func (f *Instance) PauseCoveredUIForm() bool {
	return f.pauseCovered
}

func (f *Instance) IsOpen() bool {
	return f.opened
}

func (f *Instance) IsReleased() bool {
	return f.released
}

func (f *Instance) Logic() Logic {
	return f.logic
}

func (f *Instance) Root() Root {
	return f.root
}

// Open attaches the instance to a group and forwards OnOpen.
func (f *Instance) Open(groupName string) {
	if f.released {
		f.logger.Warn("open on released form", zap.Error(ErrInvalidState))
		return
	}
	f.groupName = groupName
	f.opened = true
	f.notify(TransitionOpen, func(l Logic) { l.OnOpen() })
}

// Close forwards OnClose and detaches the instance from its group.
func (f *Instance) Close(isShutdown bool) {
	f.notify(TransitionClose, func(l Logic) { l.OnClose(isShutdown) })
	f.opened = false
	f.groupName = ""
	f.depth = -1
}

func (f *Instance) Cover() {
	f.notify(TransitionCover, func(l Logic) { l.OnCover() })
}

func (f *Instance) Reveal() {
	f.notify(TransitionReveal, func(l Logic) { l.OnReveal() })
}

func (f *Instance) Pause() {
	f.notify(TransitionPause, func(l Logic) { l.OnPause() })
}

func (f *Instance) Resume() {
	f.notify(TransitionResume, func(l Logic) { l.OnResume() })
}

func (f *Instance) Refocus() {
	f.notify(TransitionRefocus, func(l Logic) { l.OnRefocus() })
}

// DepthChanged records the new depth and forwards OnDepthChanged.
func (f *Instance) DepthChanged(groupCount, depth int) {
	f.depth = depth
	f.notify(TransitionDepthChanged, func(l Logic) { l.OnDepthChanged(groupCount, depth) })
}

// Update forwards a per-tick update. Missing logic is not reported here,
// since it would warn every frame.
func (f *Instance) Update(elapsed time.Duration) {
	if f.released || f.logic == nil {
		return
	}
	f.call("update", func(l Logic) { l.OnUpdate(elapsed) })
}

// Release destroys the display root. A second call logs and does nothing.
func (f *Instance) Release() {
	if f.released {
		f.logger.Warn("form already released", zap.Error(ErrInvalidState))
		return
	}
	f.released = true
	f.opened = false
	if f.root != nil {
		f.root.Destroy()
		f.root = nil
	}
	if f.listener != nil {
		f.listener(f, TransitionRelease)
	}
	f.logic = nil
}

func (f *Instance) String() string {
	return fmt.Sprintf("form#%d(%s)", f.serialID, f.assetName)
}

func (f *Instance) notify(t Transition, fn func(Logic)) {
	if f.released {
		f.logger.Warn("notify on released form", zap.String("transition", string(t)), zap.Error(ErrInvalidState))
		return
	}
	if f.logic == nil {
		f.logger.Warn("form has no logic", zap.String("transition", string(t)))
	} else {
		f.call(string(t), fn)
	}
	if f.listener != nil {
		f.listener(f, t)
	}
}

// call runs user code, recovering panics so a faulty callback cannot take
// the UI thread down.
func (f *Instance) call(name string, fn func(Logic)) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("form logic panicked", zap.String("callback", name), zap.Any("panic", r))
		}
	}()
	fn(f.logic)
}
