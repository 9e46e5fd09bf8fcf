package draw

import "fmt"

// ANSI SGR sequences for text drawn over the canvas.
const (
	ColorReset      = "\033[0m"
	ColorDim        = "\033[2m"
	ColorBrightCyan = "\033[96m"
	ColorYellow     = "\033[93m"
)

// FgRGB returns the 24-bit foreground colour sequence for r, g, b.
func FgRGB(r, g, b uint8) string {
	return fmt.Sprintf("\033[38;2;%d;%d;%dm", r, g, b)
}
