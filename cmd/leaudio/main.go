// Command leaudio is the native shell of the LeAudio visualizer. It exposes
// check_tauri_window to the front-end and runs the window event loop.
//
// Windows release builds are linked with -H=windowsgui (see Makefile) so no
// console window is attached.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"leaudio/internal/app"
	"leaudio/internal/commands"
	"leaudio/internal/config"
	"leaudio/internal/logger"
)

const diagnostic = "error while running tauri application"

func main() {
	launch(context.Background(), app.WithSignalHandling())
}

// launch blocks until the main window closes. Any startup failure
// terminates the process with status 1.
func launch(ctx context.Context, opts ...app.Option) {
	cfg, err := config.Load(config.WithConfigFile(os.Getenv(config.FileEnv)))
	if err != nil {
		logger.New(logger.FormatConsole, zerolog.InfoLevel).Fatal("Config", diagnostic, err)
	}

	level, levelErr := logger.ParseLevel(cfg.Log.Level)
	log := logger.New(cfg.Log.Format, level)
	if levelErr != nil {
		log.Warning("Config", "falling back to info level", map[string]interface{}{
			"error": levelErr.Error(),
		})
	}

	application := app.New(cfg, log, opts...).
		InvokeHandler(commands.CheckTauriWindowCommand())

	if err := application.Run(ctx); err != nil {
		log.Fatal("Application", diagnostic, err)
	}
}
