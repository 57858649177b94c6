package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/surgisim/fusion/internal/scene"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	cellStyle     = lipgloss.NewStyle().PaddingRight(2)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var columns = []struct {
	title string
	width int
}{
	{"", 3},
	{"model", 18},
	{"role", 18},
	{"position", 30},
	{"orientation", 30},
}

func row(style lipgloss.Style, cells ...string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = cellStyle.Width(columns[i].width).Render(c)
	}
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

func vec(v mgl64.Vec3) string {
	return fmt.Sprintf("%8.2f %8.2f %8.2f", v.X(), v.Y(), v.Z())
}

// Render draws the pose table for v followed by an optional status line.
func Render(v scene.View, status string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("fusion  frame %d", v.Frame)))
	b.WriteString("\n\n")

	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = c.title
	}
	b.WriteString(row(headerStyle, titles...))
	b.WriteString("\n")

	for _, it := range v.Items {
		mark, style := " ", lipgloss.NewStyle()
		if it.Selected {
			mark, style = ">", selectedStyle
		}
		b.WriteString(row(style, mark, it.Name, string(it.Role), vec(it.Pose.Position), vec(it.Pose.Orientation)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("pivot %s   target %s", vec(v.Pivot), vec(v.Target))))
	b.WriteString("\n")
	if status != "" {
		b.WriteString(mutedStyle.Render(status))
		b.WriteString("\n")
	}
	return b.String()
}
