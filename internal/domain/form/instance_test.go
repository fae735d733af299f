package form

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingLogic struct {
	BaseLogic
	calls   []string
	elapsed time.Duration
}

func (l *recordingLogic) OnInit(*Instance)        { l.calls = append(l.calls, "init") }
func (l *recordingLogic) OnOpen()                 { l.calls = append(l.calls, "open") }
func (l *recordingLogic) OnClose(shutdown bool)   { l.calls = append(l.calls, "close") }
func (l *recordingLogic) OnCover()                { l.calls = append(l.calls, "cover") }
func (l *recordingLogic) OnReveal()               { l.calls = append(l.calls, "reveal") }
func (l *recordingLogic) OnDepthChanged(_, _ int) { l.calls = append(l.calls, "depth") }
func (l *recordingLogic) OnUpdate(d time.Duration) {
	l.elapsed += d
}

type panickyLogic struct{ BaseLogic }

func (panickyLogic) OnOpen() { panic("bad form") }

type stubRoot struct{ destroyed int }

func (r *stubRoot) Name() string { return "stub" }
func (r *stubRoot) Destroy()     { r.destroyed++ }

func TestInstanceLifecycle(t *testing.T) {
	logic := &recordingLogic{}
	root := &stubRoot{}

	var transitions []Transition
	f := New(nil)
	f.SetListener(func(_ *Instance, tr Transition) { transitions = append(transitions, tr) })
	assert.True(t, f.IsReleased())

	f.Init(7, "Menu", "Main", true, logic, root)
	assert.Equal(t, int64(7), f.SerialID())
	assert.Equal(t, "Menu", f.AssetName())
	assert.True(t, f.PauseCoveredUIForm())
	assert.False(t, f.IsReleased())
	assert.False(t, f.IsOpen())
	assert.Equal(t, -1, f.Depth())

	f.Open("Popup")
	assert.True(t, f.IsOpen())
	assert.Equal(t, "Popup", f.GroupName())

	f.DepthChanged(2, 1)
	assert.Equal(t, 1, f.Depth())
	f.Cover()
	f.Reveal()
	f.Update(16 * time.Millisecond)
	f.Update(16 * time.Millisecond)
	assert.Equal(t, 32*time.Millisecond, logic.elapsed)

	f.Close(false)
	assert.False(t, f.IsOpen())
	assert.Empty(t, f.GroupName())
	assert.Equal(t, -1, f.Depth())

	f.Release()
	assert.True(t, f.IsReleased())
	assert.Nil(t, f.Root())
	assert.Nil(t, f.Logic())
	assert.Equal(t, 1, root.destroyed)

	assert.Equal(t, []string{"init", "open", "depth", "cover", "reveal", "close"}, logic.calls)
	assert.Equal(t, []Transition{
		TransitionInit, TransitionOpen, TransitionDepthChanged, TransitionCover,
		TransitionReveal, TransitionClose, TransitionRelease,
	}, transitions)
	assert.Equal(t, "form#7(Menu)", f.String())
}

func TestReleasedInstanceIgnoresNotifications(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	root := &stubRoot{}
	logic := &recordingLogic{}

	f := New(zap.New(core))
	f.Init(1, "Menu", "Main", false, logic, root)
	f.Release()
	f.Release()
	f.Open("Main")
	f.Pause()
	f.Update(time.Second)

	assert.False(t, f.IsOpen())
	assert.Equal(t, 1, root.destroyed)
	assert.Equal(t, []string{"init"}, logic.calls)
	assert.Equal(t, 1, logs.FilterMessage("form already released").Len())
	assert.Equal(t, 1, logs.FilterMessage("open on released form").Len())
	assert.Equal(t, 1, logs.FilterMessage("notify on released form").Len())
}

func TestMissingLogicStillTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := New(zap.New(core))
	f.Init(1, "Menu", "Main", false, nil, nil)
	f.Open("Main")
	f.Update(time.Second)

	assert.True(t, f.IsOpen())
	assert.Equal(t, 2, logs.FilterMessage("form has no logic").Len())
	assert.NotPanics(t, f.Release)
}

func TestLogicPanicIsRecovered(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	f := New(zap.New(core))
	f.Init(1, "Menu", "Main", false, panickyLogic{}, nil)

	require.NotPanics(t, func() { f.Open("Main") })
	assert.True(t, f.IsOpen())

	entries := logs.FilterMessage("form logic panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "open", entries[0].ContextMap()["callback"])
}
