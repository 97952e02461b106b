package commands

// fyne.Window has no minimize or maximize call, so hide and fullscreen stand
// in for the title bar's minimize and maximize buttons.
const (
	WindowShowName             = "window_show"
	WindowHideName             = "window_hide"
	WindowToggleFullScreenName = "window_toggle_fullscreen"
	WindowCloseName            = "window_close"
)

// Window is the subset of fyne.Window the title bar commands drive.
type Window interface {
	Show()
	Hide()
	Close()
	FullScreen() bool
	SetFullScreen(bool)
}

// WindowCommands builds the title bar commands for w. Every window call goes
// through do, which must run it on the UI goroutine and wait for it.
func WindowCommands(w Window, do func(func())) []Command {
	return []Command{
		Nullary(WindowShowName, func() bool {
			do(w.Show)
			return true
		}),
		Nullary(WindowHideName, func() bool {
			do(w.Hide)
			return true
		}),
		Nullary(WindowToggleFullScreenName, func() bool {
			var fullScreen bool
			do(func() {
				fullScreen = !w.FullScreen()
				w.SetFullScreen(fullScreen)
			})
			return fullScreen
		}),
		Nullary(WindowCloseName, func() bool {
			do(w.Close)
			return true
		}),
	}
}
