package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	` _ __   ___ _ __ ___  ___  _ __   __ _ `,
	`| '_ \ / _ \ '__/ __|/ _ \| '_ \ / _` + "`" + ` |`,
	`| |_) |  __/ |  \__ \ (_) | | | | (_| |`,
	`| .__/ \___|_|  |___/\___/|_| |_|\__,_|`,
	`|_|`,
}

var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f0abfc"}

// PrintBanner writes the Persona banner followed by the agent introduction.
// Colors are dropped when w is not a terminal.
func PrintBanner(w io.Writer, agentName, roleName string) {
	p := termenv.Ascii
	if IsTerminal(w) {
		p = termenv.ColorProfile()
	}
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, p.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w)
	intro := p.String(fmt.Sprintf("%s (%s)", agentName, roleName)).Bold()
	fmt.Fprintln(w, intro)
	fmt.Fprintln(w)
}
