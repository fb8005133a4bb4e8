package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the cracklens banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Amber to red, like a crack under inspection light.
	lines := []struct {
		text  string
		color string
	}{
		{`   ___               _    _`, "#fbbf24"},
		{`  / __|_ _ __ _ __ _| |__| |   ___ _ _  ___`, "#f59e0b"},
		{` | (__| '_/ _' / _| / / |__/ -_) ' \(_-<`, "#f97316"},
		{`  \___|_| \__,_\__|_\_\____\___|_||_/__/`, "#ef4444"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
