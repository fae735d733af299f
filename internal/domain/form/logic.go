package form

import "time"

// Logic receives lifecycle notifications for one form. It is implemented by
// user code; the form never manages its lifetime.
type Logic interface {
	OnInit(f *Instance)
	OnOpen()
	OnClose(isShutdown bool)
	OnCover()
	OnReveal()
	OnPause()
	OnResume()
	OnRefocus()
	OnDepthChanged(groupCount, depth int)
	OnUpdate(elapsed time.Duration)
}

// BaseLogic implements Logic with no-ops. Embed it to override only the
// callbacks you need.
type BaseLogic struct{}

func (BaseLogic) OnInit(*Instance)        {}
func (BaseLogic) OnOpen()                 {}
func (BaseLogic) OnClose(bool)            {}
func (BaseLogic) OnCover()                {}
func (BaseLogic) OnReveal()               {}
func (BaseLogic) OnPause()                {}
func (BaseLogic) OnResume()               {}
func (BaseLogic) OnRefocus()              {}
func (BaseLogic) OnDepthChanged(int, int) {}
func (BaseLogic) OnUpdate(time.Duration)  {}

// Root is the instantiated display object backing a form.
type Root interface {
	Name() string
	Destroy()
}

// Transition names a lifecycle notification.
type Transition string

const (
	TransitionInit         Transition = "init"
	TransitionOpen         Transition = "open"
	TransitionClose        Transition = "close"
	TransitionCover        Transition = "cover"
	TransitionReveal       Transition = "reveal"
	TransitionPause        Transition = "pause"
	TransitionResume       Transition = "resume"
	TransitionRefocus      Transition = "refocus"
	TransitionDepthChanged Transition = "depth_changed"
	TransitionRelease      Transition = "release"
)

// Listener observes transitions after the logic sink was notified.
// Update ticks are not reported.
type Listener func(f *Instance, t Transition)
