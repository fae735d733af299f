package logic

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/formstack/internal/domain/asset"
	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/shared/utils"
)

// Hook names a script function called for a lifecycle notification.
const (
	HookInit         = "onInit"
	HookOpen         = "onOpen"
	HookClose        = "onClose"
	HookCover        = "onCover"
	HookReveal       = "onReveal"
	HookPause        = "onPause"
	HookResume       = "onResume"
	HookRefocus      = "onRefocus"
	HookDepthChanged = "onDepthChanged"
	HookUpdate       = "onUpdate"
)

var hooks = []string{
	HookInit, HookOpen, HookClose, HookCover, HookReveal,
	HookPause, HookResume, HookRefocus, HookDepthChanged, HookUpdate,
}

// Config bounds script execution.
type Config struct {
	// Timeout interrupts a single hook call (and the top-level run).
	Timeout time.Duration
	// MaxCallStackSize limits recursion.
	MaxCallStackSize int
	// ProgramCacheSize bounds the compiled programs kept for reuse.
	ProgramCacheSize int
}

// DefaultConfig returns the limits used when none are configured
func DefaultConfig() Config {
	return Config{
		Timeout:          100 * time.Millisecond,
		MaxCallStackSize: 1024,
		ProgramCacheSize: 64,
	}
}

// Factory builds the logic sink for a document: a Script when it carries
// one, a no-op sink otherwise. Compiled programs are cached by source digest,
// so a form recreated after eviction skips compilation.
type Factory struct {
	config   Config
	logger   *zap.Logger
	hasher   *utils.Hasher
	programs *lru.Cache[string, *goja.Program]
}

// NewFactory creates a logic factory
func NewFactory(config Config, logger *zap.Logger) *Factory {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.MaxCallStackSize <= 0 {
		config.MaxCallStackSize = DefaultConfig().MaxCallStackSize
	}
	if config.ProgramCacheSize <= 0 {
		config.ProgramCacheSize = DefaultConfig().ProgramCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	programs, _ := lru.New[string, *goja.Program](config.ProgramCacheSize)
	return &Factory{
		config:   config,
		logger:   logger.Named("script"),
		hasher:   utils.DefaultHasher(),
		programs: programs,
	}
}

// New compiles and runs the document script, returning its hooks.
func (f *Factory) New(doc *asset.Document) (form.Logic, error) {
	if strings.TrimSpace(doc.Script) == "" {
		return form.BaseLogic{}, nil
	}
	program, err := f.compile(doc.Name, doc.Script)
	if err != nil {
		return nil, err
	}
	return newScript(doc.Name, program, f.config, f.logger)
}

// CachedPrograms returns the number of compiled programs held
func (f *Factory) CachedPrograms() int {
	return f.programs.Len()
}

func (f *Factory) compile(name, source string) (*goja.Program, error) {
	key := f.hasher.HashString(source)
	if program, ok := f.programs.Get(key); ok {
		f.logger.Debug("script program reused", zap.String("asset", name), zap.String("digest", utils.ShortHash(key)))
		return program, nil
	}
	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script for %q: %w", name, err)
	}
	f.programs.Add(key, program)
	return program, nil
}

// Script runs a form's JavaScript hooks in a private goja VM. It must only
// be called from the UI goroutine, like the form that owns it.
type Script struct {
	name   string
	vm     *goja.Runtime
	config Config
	logger *zap.Logger

	inst   *form.Instance
	hooks  map[string]goja.Callable
	errors int
}

// NewScript compiles source and runs its top level once.
func NewScript(name, source string, config Config, logger *zap.Logger) (*Script, error) {
	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script for %q: %w", name, err)
	}
	return newScript(name, program, config, logger)
}

func newScript(name string, program *goja.Program, config Config, logger *zap.Logger) (*Script, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Script{
		name:   name,
		vm:     goja.New(),
		config: config,
		logger: logger.With(zap.String("asset", name)),
		hooks:  make(map[string]goja.Callable),
	}
	if config.MaxCallStackSize > 0 {
		s.vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	s.setupGlobals()

	if err := s.guard(func() error {
		_, err := s.vm.RunProgram(program)
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to run script for %q: %w", name, err)
	}

	for _, h := range hooks {
		if fn, ok := goja.AssertFunction(s.vm.Get(h)); ok {
			s.hooks[h] = fn
		}
	}
	return s, nil
}

// HasHook reports whether the script defines the named hook
func (s *Script) HasHook(name string) bool {
	_, ok := s.hooks[name]
	return ok
}

// Errors counts failed hook calls
func (s *Script) Errors() int {
	return s.errors
}

// Get exports a global for inspection
func (s *Script) Get(name string) any {
	v := s.vm.Get(name)
	if v == nil {
		return nil
	}
	return v.Export()
}

func (s *Script) OnInit(f *form.Instance) {
	s.inst = f
	s.invoke(HookInit)
}

func (s *Script) OnOpen()    { s.invoke(HookOpen) }
func (s *Script) OnCover()   { s.invoke(HookCover) }
func (s *Script) OnReveal()  { s.invoke(HookReveal) }
func (s *Script) OnPause()   { s.invoke(HookPause) }
func (s *Script) OnResume()  { s.invoke(HookResume) }
func (s *Script) OnRefocus() { s.invoke(HookRefocus) }

func (s *Script) OnClose(isShutdown bool) {
	s.invoke(HookClose, s.vm.ToValue(isShutdown))
}

func (s *Script) OnDepthChanged(groupCount, depth int) {
	s.invoke(HookDepthChanged, s.vm.ToValue(groupCount), s.vm.ToValue(depth))
}

// OnUpdate passes elapsed time in milliseconds.
func (s *Script) OnUpdate(elapsed time.Duration) {
	s.invoke(HookUpdate, s.vm.ToValue(float64(elapsed)/float64(time.Millisecond)))
}

func (s *Script) invoke(hook string, args ...goja.Value) {
	fn, ok := s.hooks[hook]
	if !ok {
		return
	}
	err := s.guard(func() error {
		_, err := fn(goja.Undefined(), args...)
		return err
	})
	if err != nil {
		s.errors++
		s.logger.Warn("script hook failed", zap.String("hook", hook), zap.Error(err))
	}
}

// guard runs fn with the call timeout armed.
func (s *Script) guard(fn func() error) error {
	if s.config.Timeout > 0 {
		ig := &interruptGuard{vm: s.vm}
		timer := time.AfterFunc(s.config.Timeout, func() {
			ig.fire("execution timeout exceeded")
		})
		defer func() {
			ig.finish()
			timer.Stop()
			s.vm.ClearInterrupt()
		}()
	}
	return fn()
}

// interruptGuard interrupts the VM only while the guarded call is running.
// A timer callback that loses the race with finish does nothing, so no
// interrupt leaks into the next call.
type interruptGuard struct {
	mu   sync.Mutex
	done bool
	vm   *goja.Runtime
}

func (g *interruptGuard) fire(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.done {
		g.vm.Interrupt(reason)
	}
}

func (g *interruptGuard) finish() {
	g.mu.Lock()
	g.done = true
	g.mu.Unlock()
}

func (s *Script) setupGlobals() {
	for _, name := range []string{"require", "process", "module", "exports"} {
		s.vm.Set(name, goja.Undefined())
	}

	console := s.vm.NewObject()
	console.Set("log", s.consoleFunc(zapcore.InfoLevel))
	console.Set("info", s.consoleFunc(zapcore.InfoLevel))
	console.Set("debug", s.consoleFunc(zapcore.DebugLevel))
	console.Set("warn", s.consoleFunc(zapcore.WarnLevel))
	console.Set("error", s.consoleFunc(zapcore.ErrorLevel))
	s.vm.Set("console", console)

	obj := s.vm.NewObject()
	obj.Set("serialId", func() int64 {
		if s.inst == nil {
			return 0
		}
		return s.inst.SerialID()
	})
	obj.Set("assetName", func() string { return s.name })
	obj.Set("group", func() string {
		if s.inst == nil {
			return ""
		}
		return s.inst.GroupName()
	})
	obj.Set("depth", func() int {
		if s.inst == nil {
			return -1
		}
		return s.inst.Depth()
	})
	obj.Set("isOpen", func() bool {
		return s.inst != nil && s.inst.IsOpen()
	})
	obj.Set("pauseCoveredUIForm", func() bool {
		return s.inst != nil && s.inst.PauseCoveredUIForm()
	})
	s.vm.Set("form", obj)
}

func (s *Script) consoleFunc(level zapcore.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		if ce := s.logger.Check(level, strings.Join(parts, " ")); ce != nil {
			ce.Write(zap.String("source", "console"))
		}
		return goja.Undefined()
	}
}
