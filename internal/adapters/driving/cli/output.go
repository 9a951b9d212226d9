package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	headingStyle = color.New(color.FgCyan, color.Bold).SprintFunc()
	scoreStyle   = color.New(color.FgGreen).SprintFunc()
	dimStyle     = color.New(color.Faint).SprintFunc()
	warnStyle    = color.New(color.FgYellow).SprintFunc()
	okStyle      = color.New(color.FgGreen).SprintFunc()
	errStyle     = color.New(color.FgRed).SprintFunc()
)

func printWarning(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", warnStyle("warning:"), msg)
}

// indent prefixes every line of s with two spaces.
func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
