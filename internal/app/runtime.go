package app

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
)

var ErrRuntimeUnavailable = errors.New("application runtime unavailable")

// RuntimeFactory constructs the windowing runtime for the given app ID.
type RuntimeFactory func(id string) (fyne.App, error)

// DefaultRuntime builds a Fyne application with default settings.
func DefaultRuntime(id string) (fyne.App, error) {
	var rt fyne.App
	err := guard("construct runtime", func() {
		rt = fyneapp.NewWithID(id)
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// guard turns a driver panic (no display, GL init failure) into an error.
func guard(step string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrRuntimeUnavailable, step, r)
		}
	}()

	fn()
	return nil
}
