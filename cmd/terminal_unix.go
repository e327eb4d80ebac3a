//go:build !windows

package cmd

import (
	"os"
	"syscall"
	"unsafe"
)

// getTerminalSize returns the width and height of stdout's terminal, or 0, 0.
func getTerminalSize() (int, int) {
	if w, h, ok := envTerminalSize(); ok {
		return w, h
	}

	var ws struct {
		Row, Col       uint16
		Xpixel, Ypixel uint16
	}
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		os.Stdout.Fd(),
		uintptr(syscall.TIOCGWINSZ),
		uintptr(unsafe.Pointer(&ws)))
	if errno != 0 {
		return 0, 0
	}
	return int(ws.Col), int(ws.Row)
}
