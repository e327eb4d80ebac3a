//go:build windows

package cmd

import (
	"syscall"
	"unsafe"
)

var procGetConsoleScreenBufferInfo = syscall.NewLazyDLL("kernel32.dll").NewProc("GetConsoleScreenBufferInfo")

type consoleScreenBufferInfo struct {
	Size              [2]int16
	CursorPosition    [2]int16
	Attributes        int16
	Window            [4]int16 // left, top, right, bottom
	MaximumWindowSize [2]int16
}

// getTerminalSize returns the width and height of the console window, or 0, 0.
func getTerminalSize() (int, int) {
	if w, h, ok := envTerminalSize(); ok {
		return w, h
	}

	var csbi consoleScreenBufferInfo
	ret, _, _ := procGetConsoleScreenBufferInfo.Call(uintptr(syscall.Stdout), uintptr(unsafe.Pointer(&csbi)))
	if ret == 0 {
		return 0, 0
	}
	w := int(csbi.Window[2] - csbi.Window[0] + 1)
	h := int(csbi.Window[3] - csbi.Window[1] + 1)
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	return w, h
}
