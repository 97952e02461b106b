package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"fyne.io/fyne/v2"

	"leaudio/internal/buildmode"
	"leaudio/internal/commands"
	"leaudio/internal/config"
	"leaudio/internal/ipc"
	"leaudio/internal/logger"
	"leaudio/internal/shutdown"
)

var ErrAlreadyStarted = errors.New("application already started")

type Option func(*Application)

// WithRuntime replaces the Fyne runtime factory.
func WithRuntime(factory RuntimeFactory) Option {
	return func(a *Application) { a.runtimeFactory = factory }
}

// WithOnReady registers a hook that runs after every command is registered
// and the bridge is up, right before the event loop blocks.
func WithOnReady(fn func(*Application)) Option {
	return func(a *Application) { a.onReady = fn }
}

// WithSignalHandling quits the event loop on SIGINT/SIGTERM.
func WithSignalHandling() Option {
	return func(a *Application) { a.handleSignals = true }
}

// WithUIRunner replaces the function used to run window operations and Quit
// on the UI goroutine.
func WithUIRunner(do func(func())) Option {
	return func(a *Application) { a.uiDo = do }
}

type Application struct {
	cfg       *config.Config
	logger    logger.Logger
	registry  *commands.Registry
	lifecycle *Lifecycle
	shutdown  *shutdown.Manager
	started   atomic.Bool

	runtimeFactory RuntimeFactory
	onReady        func(*Application)
	handleSignals  bool
	uiDo           func(func())
	setupErr       error

	fyneApp fyne.App
	window  fyne.Window
	view    *ShellView
	bridge  *ipc.Server
}

func New(cfg *config.Config, log logger.Logger, opts ...Option) *Application {
	a := &Application{
		cfg:            cfg,
		logger:         log,
		registry:       commands.NewRegistry(),
		lifecycle:      NewLifecycle(log),
		shutdown:       shutdown.NewManager(log),
		runtimeFactory: DefaultRuntime,
		uiDo:           fyne.DoAndWait,
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InvokeHandler registers commands the front-end may invoke. Registration
// errors surface from Run.
func (a *Application) InvokeHandler(cmds ...commands.Command) *Application {
	if err := a.registry.Register(cmds...); err != nil && a.setupErr == nil {
		a.setupErr = err
	}
	return a
}

// Run builds the runtime and blocks in the event loop until the main window
// closes. Any construction failure leaves the application Aborted; the
// error is returned for the caller to report.
func (a *Application) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := a.bootstrap(ctx); err != nil {
		a.lifecycle.MarkAborted()
		a.shutdown.Shutdown()
		return err
	}

	a.lifecycle.MarkRunning()

	a.logger.Info("Application", "starting event loop", map[string]interface{}{
		"app_id":   a.cfg.App.ID,
		"commands": a.registry.Names(),
		"bridge":   a.BridgeAddr(),
	})

	if a.onReady != nil {
		a.onReady(a)
	}

	loopDone := make(chan struct{})
	go a.watchContext(ctx, loopDone)

	a.window.Show()
	err := guard("run event loop", a.fyneApp.Run)
	close(loopDone)

	a.shutdown.Shutdown()

	if err != nil {
		a.lifecycle.MarkAborted()
		return err
	}

	a.lifecycle.MarkExited()
	a.logger.Info("Application", "event loop finished", nil)
	return nil
}

func (a *Application) bootstrap(ctx context.Context) error {
	if a.setupErr != nil {
		return fmt.Errorf("register commands: %w", a.setupErr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.logger.Info("Application", "starting application", map[string]interface{}{
		"app_id":      a.cfg.App.ID,
		"go_version":  runtime.Version(),
		"debug_build": buildmode.Debug,
	})

	rt, err := a.runtimeFactory(a.cfg.App.ID)
	if err != nil {
		return err
	}
	if rt == nil {
		return fmt.Errorf("%w: runtime factory returned nil", ErrRuntimeUnavailable)
	}
	a.fyneApp = rt

	err = guard("create window", func() {
		a.window = rt.NewWindow(a.cfg.App.Name)
		a.window.Resize(fyne.NewSize(a.cfg.App.Width, a.cfg.App.Height))
		a.window.CenterOnScreen()
		a.window.SetMaster()

		a.view = NewShellView(a.cfg.App.Name)
		a.window.SetContent(a.view.GetContainer())
	})
	if err != nil {
		return err
	}

	a.window.SetOnClosed(func() {
		a.logger.Info("Application", "main window closed", nil)
	})

	if a.cfg.Bridge.WindowCommands {
		if err := a.registry.Register(commands.WindowCommands(a.window, a.uiDo)...); err != nil {
			return fmt.Errorf("register window commands: %w", err)
		}
	}

	if a.cfg.Bridge.Enabled {
		a.bridge = ipc.NewServer(a.cfg.Bridge.Addr(), a.registry, a.logger,
			ipc.WithBaseContext(a.shutdown.Context()))
		if err := a.bridge.Start(ctx); err != nil {
			return err
		}
		a.shutdown.Register(a.bridge)
		a.view.SetBridgeAddr(a.bridge.Addr())
	}

	if a.handleSignals {
		a.shutdown.Listen(func(os.Signal) {
			a.Quit()
		})
	}

	return nil
}

func (a *Application) watchContext(ctx context.Context, loopDone <-chan struct{}) {
	select {
	case <-ctx.Done():
		a.logger.Info("Application", "context cancelled, quitting", nil)
		a.Quit()
	case <-loopDone:
	}
}

// Quit asks the event loop to return.
func (a *Application) Quit() {
	if a.fyneApp == nil {
		return
	}
	a.uiDo(a.fyneApp.Quit)
}

// Invoke dispatches a registered command, as the bridge does for the front-end.
func (a *Application) Invoke(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	return a.registry.Invoke(ctx, name, args)
}

func (a *Application) Commands() []string {
	return a.registry.Names()
}

func (a *Application) State() State {
	return a.lifecycle.State()
}

func (a *Application) Window() fyne.Window {
	return a.window
}

func (a *Application) View() *ShellView {
	return a.view
}

// BridgeAddr is empty when the bridge is disabled or not yet started.
func (a *Application) BridgeAddr() string {
	if a.bridge == nil {
		return ""
	}
	return a.bridge.Addr()
}
