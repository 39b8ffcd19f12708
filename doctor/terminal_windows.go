//go:build windows

package doctor

// Not needed on Windows
func resetTerminal() {}
