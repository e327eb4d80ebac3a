package cmd

import (
	"os"
	"strconv"
)

// envTerminalSize reads COLUMNS and LINES when both are set.
func envTerminalSize() (int, int, bool) {
	c, errC := strconv.Atoi(os.Getenv("COLUMNS"))
	r, errR := strconv.Atoi(os.Getenv("LINES"))
	if errC != nil || errR != nil || c <= 0 || r <= 0 {
		return 0, 0, false
	}
	return c, r, true
}
