package app

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ShellView is the native content shown while the front-end is attached.
type ShellView struct {
	container   *fyne.Container
	titleLabel  *widget.Label
	bridgeLabel *widget.Label
}

func NewShellView(title string) *ShellView {
	titleLabel := widget.NewLabelWithStyle(title, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	bridgeLabel := widget.NewLabel("Bridge: disabled")

	mainContainer := container.NewBorder(
		nil,
		bridgeLabel,
		nil, nil,
		container.NewCenter(titleLabel),
	)

	return &ShellView{
		container:   mainContainer,
		titleLabel:  titleLabel,
		bridgeLabel: bridgeLabel,
	}
}

func (v *ShellView) GetContainer() *fyne.Container {
	return v.container
}

func (v *ShellView) SetBridgeAddr(addr string) {
	v.bridgeLabel.SetText(fmt.Sprintf("Bridge: http://%s/ipc", addr))
}

func (v *ShellView) BridgeText() string {
	return v.bridgeLabel.Text
}
