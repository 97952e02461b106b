package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaudio/internal/commands"
	"leaudio/internal/config"
	"leaudio/internal/logger"
)

func testRuntime(string) (fyne.App, error) {
	return test.NewApp(), nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Bridge.Enabled = false
	return cfg
}

func inline(fn func()) { fn() }

// blockingApp keeps Run blocked until Quit, like a real driver.
type blockingApp struct {
	fyne.App
	quit chan struct{}
	once sync.Once
}

func newBlockingApp() *blockingApp {
	return &blockingApp{App: test.NewApp(), quit: make(chan struct{})}
}

func (b *blockingApp) Run()  { <-b.quit }
func (b *blockingApp) Quit() { b.once.Do(func() { close(b.quit) }) }

func blockingRuntime(rt *blockingApp) RuntimeFactory {
	return func(string) (fyne.App, error) { return rt, nil }
}

type logEntry struct {
	level     string
	component string
	message   string
	fields    map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLogger) add(e logEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingLogger) Info(component, message string, fields map[string]interface{}) {
	r.add(logEntry{"info", component, message, fields})
}

func (r *recordingLogger) Error(component string, err error, fields map[string]interface{}) {
	r.add(logEntry{"error", component, err.Error(), fields})
}

func (r *recordingLogger) Warning(component, message string, fields map[string]interface{}) {
	r.add(logEntry{"warn", component, message, fields})
}

func (r *recordingLogger) Debug(component, message string, fields map[string]interface{}) {
	r.add(logEntry{"debug", component, message, fields})
}

func (r *recordingLogger) find(level, message string) (logEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.level == level && (message == "" || e.message == message) {
			return e, true
		}
	}
	return logEntry{}, false
}

func TestRunRegistersCommandBeforeLoop(t *testing.T) {
	ready := false
	a := New(testConfig(), logger.NoOpLogger{},
		WithRuntime(testRuntime),
		WithOnReady(func(a *Application) {
			ready = true
			assert.Equal(t, StateRunning, a.State())
			assert.Equal(t, []string{commands.CheckTauriWindowName}, a.Commands())

			result, err := a.Invoke(context.Background(), commands.CheckTauriWindowName, nil)
			require.NoError(t, err)
			assert.Equal(t, true, result)
		}),
	).InvokeHandler(commands.CheckTauriWindowCommand())

	require.NoError(t, a.Run(context.Background()))
	assert.True(t, ready)
	assert.Equal(t, StateExited, a.State())
	assert.Empty(t, a.BridgeAddr())
}

func TestRunConfiguresMainWindow(t *testing.T) {
	cfg := testConfig()
	a := New(cfg, logger.NoOpLogger{}, WithRuntime(testRuntime)).
		InvokeHandler(commands.CheckTauriWindowCommand())

	require.NoError(t, a.Run(context.Background()))
	require.NotNil(t, a.Window())
	assert.Equal(t, cfg.App.Name, a.Window().Title())
	assert.Equal(t, "Bridge: disabled", a.View().BridgeText())
}

func TestRunServesBridge(t *testing.T) {
	cfg := testConfig()
	cfg.Bridge.Enabled = true
	cfg.Bridge.Port = 0

	var addr string
	a := New(cfg, logger.NoOpLogger{},
		WithRuntime(testRuntime),
		WithOnReady(func(a *Application) {
			addr = a.BridgeAddr()
			resp, err := http.Post(fmt.Sprintf("http://%s/ipc/check_tauri_window", addr), "application/json", nil)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}),
	).InvokeHandler(commands.CheckTauriWindowCommand())

	require.NoError(t, a.Run(context.Background()))
	assert.NotEmpty(t, addr)
	assert.Contains(t, a.View().BridgeText(), addr)

	_, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	assert.Error(t, err, "bridge should stop with the event loop")
}

func TestRunCancelledWhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := newBlockingApp()
	a := New(testConfig(), logger.NoOpLogger{},
		WithRuntime(blockingRuntime(rt)),
		WithUIRunner(inline),
		WithOnReady(func(*Application) { cancel() }),
	).InvokeHandler(commands.CheckTauriWindowCommand())

	require.NoError(t, a.Run(ctx))
	assert.Equal(t, StateExited, a.State())
}

func TestRunQuitEndsLoopAndStopsBridge(t *testing.T) {
	cfg := testConfig()
	cfg.Bridge.Enabled = true
	cfg.Bridge.Port = 0

	rt := newBlockingApp()
	var addr string
	a := New(cfg, logger.NoOpLogger{},
		WithRuntime(blockingRuntime(rt)),
		WithUIRunner(inline),
		WithOnReady(func(a *Application) {
			addr = a.BridgeAddr()
			go a.Quit()
		}),
	).InvokeHandler(commands.CheckTauriWindowCommand())

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, StateExited, a.State())

	_, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	assert.Error(t, err)
}

func TestRunLogsBuildMode(t *testing.T) {
	log := &recordingLogger{}
	a := New(testConfig(), log, WithRuntime(testRuntime)).
		InvokeHandler(commands.CheckTauriWindowCommand())

	require.NoError(t, a.Run(context.Background()))

	entry, ok := log.find("info", "starting application")
	require.True(t, ok)
	assert.Contains(t, entry.fields, "debug_build")
}

func TestRunFailureLeavesReportingToCaller(t *testing.T) {
	log := &recordingLogger{}
	a := New(testConfig(), log,
		WithRuntime(func(string) (fyne.App, error) {
			return nil, fmt.Errorf("%w: no display", ErrRuntimeUnavailable)
		}))

	require.Error(t, a.Run(context.Background()))
	_, logged := log.find("error", "")
	assert.False(t, logged, "Run should return the error without logging it")
}

func TestRunRuntimeFailureAborts(t *testing.T) {
	readyCalled := false
	a := New(testConfig(), logger.NoOpLogger{},
		WithRuntime(func(string) (fyne.App, error) {
			return nil, fmt.Errorf("%w: no display", ErrRuntimeUnavailable)
		}),
		WithOnReady(func(*Application) { readyCalled = true }),
	).InvokeHandler(commands.CheckTauriWindowCommand())

	err := a.Run(context.Background())
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
	assert.Equal(t, StateAborted, a.State())
	assert.False(t, readyCalled)
}

func TestRunNilRuntimeAborts(t *testing.T) {
	a := New(testConfig(), logger.NoOpLogger{},
		WithRuntime(func(string) (fyne.App, error) { return nil, nil }))

	assert.ErrorIs(t, a.Run(context.Background()), ErrRuntimeUnavailable)
	assert.Equal(t, StateAborted, a.State())
}

func TestRunBridgeBindFailureAborts(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := testConfig()
	cfg.Bridge.Enabled = true
	cfg.Bridge.Port = occupied.Addr().(*net.TCPAddr).Port

	a := New(cfg, logger.NoOpLogger{}, WithRuntime(testRuntime)).
		InvokeHandler(commands.CheckTauriWindowCommand())

	assert.Error(t, a.Run(context.Background()))
	assert.Equal(t, StateAborted, a.State())
}

func TestRunTwice(t *testing.T) {
	a := New(testConfig(), logger.NoOpLogger{}, WithRuntime(testRuntime)).
		InvokeHandler(commands.CheckTauriWindowCommand())

	require.NoError(t, a.Run(context.Background()))
	assert.ErrorIs(t, a.Run(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, StateExited, a.State())
}

func TestRunDuplicateCommand(t *testing.T) {
	a := New(testConfig(), logger.NoOpLogger{}, WithRuntime(testRuntime)).
		InvokeHandler(commands.CheckTauriWindowCommand()).
		InvokeHandler(commands.CheckTauriWindowCommand())

	assert.ErrorIs(t, a.Run(context.Background()), commands.ErrDuplicateCommand)
	assert.Equal(t, StateAborted, a.State())
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(testConfig(), logger.NoOpLogger{}, WithRuntime(testRuntime))
	assert.True(t, errors.Is(a.Run(ctx), context.Canceled))
	assert.Equal(t, StateAborted, a.State())
}

func TestWindowCommandsOptIn(t *testing.T) {
	cfg := testConfig()
	cfg.Bridge.WindowCommands = true

	a := New(cfg, logger.NoOpLogger{},
		WithRuntime(testRuntime),
		WithUIRunner(inline),
		WithOnReady(func(a *Application) {
			assert.Contains(t, a.Commands(), commands.WindowToggleFullScreenName)

			result, err := a.Invoke(context.Background(), commands.WindowToggleFullScreenName, nil)
			require.NoError(t, err)
			assert.Equal(t, true, result)
			assert.True(t, a.Window().FullScreen())
		}),
	).InvokeHandler(commands.CheckTauriWindowCommand())

	require.NoError(t, a.Run(context.Background()))
}

func TestGuardRecoversPanic(t *testing.T) {
	err := guard("run event loop", func() { panic("GLFW: no display") })
	require.ErrorIs(t, err, ErrRuntimeUnavailable)
	assert.Contains(t, err.Error(), "no display")

	assert.NoError(t, guard("noop", func() {}))
}
