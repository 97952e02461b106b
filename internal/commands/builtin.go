package commands

// CheckTauriWindowName is the name the front-end calls to detect the native shell.
const CheckTauriWindowName = "check_tauri_window"

// CheckTauriWindow reports that the front-end runs inside the desktop shell.
func CheckTauriWindow() bool {
	return true
}

func CheckTauriWindowCommand() Command {
	return Nullary(CheckTauriWindowName, CheckTauriWindow)
}
