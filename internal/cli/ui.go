package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/matzehuels/depgraph/pkg/deps"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleErrorLeaf = lipgloss.NewStyle().Foreground(colorRed)
	styleRef       = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	styleVersion   = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconRef     = "↺"
	iconMore    = "…"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints run statistics on a single line.
func printStats(w io.Writer, s deps.Stats) {
	parts := []string{fmt.Sprintf("%d packages", s.Packages)}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.Skipped))
	}
	parts = append(parts, fmt.Sprintf("depth %d", s.Depth))

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Fprintln(w, line)
}

// =============================================================================
// Tree Output
// =============================================================================

// renderTree draws a resolved tree with box-drawing branches.
func renderTree(t *deps.Tree) string {
	root := tree.Root(StyleTitle.Render(t.Name) + versionSuffix(t)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(StyleDim)
	addChildren(root, t.Children)
	return root.String()
}

func addChildren(parent *tree.Tree, children []*deps.Tree) {
	for _, c := range children {
		label := nodeLabel(c)
		if c.IsLeaf() {
			parent.Child(label)
			continue
		}
		sub := tree.Root(label)
		addChildren(sub, c.Children)
		parent.Child(sub)
	}
}

func nodeLabel(t *deps.Tree) string {
	switch {
	case t.IsError():
		label := styleErrorLeaf.Render(t.Name)
		if t.Error != "" {
			label += " " + StyleDim.Render("("+firstLine(t.Error)+")")
		}
		return label
	case t.Ref:
		return styleRef.Render(t.Name+versionText(t)) + " " + StyleDim.Render(iconRef)
	case t.Truncated:
		return StyleDim.Render(t.Name + versionText(t) + " " + iconMore)
	default:
		return StyleValue.Render(t.Name) + versionSuffix(t)
	}
}

func versionText(t *deps.Tree) string {
	if t.Version == "" {
		return ""
	}
	return "@" + t.Version
}

func versionSuffix(t *deps.Tree) string {
	if t.Version == "" {
		return ""
	}
	return styleVersion.Render("@" + t.Version)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
