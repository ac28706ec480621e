package handlers

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/aries/internal/graph"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/state"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)

	actionStyles = map[provisioning.Action]lipgloss.Style{
		provisioning.ActionCreate:  lipgloss.NewStyle().Foreground(colorGreen),
		provisioning.ActionUpdate:  lipgloss.NewStyle().Foreground(colorYellow),
		provisioning.ActionReplace: lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		provisioning.ActionDelete:  lipgloss.NewStyle().Foreground(colorRed),
		provisioning.ActionNoop:    dimStyle,
	}

	actionMarks = map[provisioning.Action]string{
		provisioning.ActionCreate:  "+",
		provisioning.ActionUpdate:  "~",
		provisioning.ActionReplace: "-/+",
		provisioning.ActionDelete:  "-",
		provisioning.ActionNoop:    " ",
	}
)

// printer renders with lipgloss styles on a terminal and plain text
// otherwise.
type printer struct {
	w      io.Writer
	styled bool
}

func (p printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p printer) println(text string) {
	fmt.Fprintln(p.w, text)
}

// renderPlan prints every step with its property changes followed by a
// summary line.
func renderPlan(w io.Writer, plan *provisioning.Plan, styled bool) {
	p := printer{w: w, styled: styled}

	p.println(p.style(titleStyle, fmt.Sprintf("Stack %s (state serial %d)", plan.Stack, plan.Serial)))
	p.println("")

	for _, step := range plan.Steps {
		s := actionStyles[step.Action]
		line := fmt.Sprintf("  %3s %s", actionMarks[step.Action], step.ID)
		if step.Action != provisioning.ActionNoop {
			line += fmt.Sprintf(" (%s)", step.Action)
		}
		p.println(p.style(s, line))

		if step.Reason != "" {
			p.println(p.style(dimStyle, "        because "+step.Reason))
		}
		for _, c := range step.Changes {
			p.println(formatChange(p, c))
		}
	}

	p.println("")
	p.println(p.style(sectionStyle, summary(plan.Counts())))
}

func formatChange(p printer, c provisioning.Change) string {
	line := fmt.Sprintf("        %s: %s => %s", c.Key, displayValue(c.Old), displayValue(c.New))
	if c.ForceNew {
		line += " " + p.style(actionStyles[provisioning.ActionReplace], "(forces replacement)")
	}
	return line
}

// displayValue shortens long property values such as command text.
func displayValue(v string) string {
	if v == "" {
		return `""`
	}
	v = strings.ReplaceAll(v, "\n", `\n`)
	const maxLen = 60
	if len(v) > maxLen {
		return fmt.Sprintf("%q...", v[:maxLen])
	}
	return fmt.Sprintf("%q", v)
}

func summary(counts map[provisioning.Action]int) string {
	return fmt.Sprintf("Plan: %d to create, %d to update, %d to replace, %d to delete, %d unchanged.",
		counts[provisioning.ActionCreate],
		counts[provisioning.ActionUpdate],
		counts[provisioning.ActionReplace],
		counts[provisioning.ActionDelete],
		counts[provisioning.ActionNoop])
}

// renderDestroyPlan lists the resources a destroy will delete.
func renderDestroyPlan(w io.Writer, st *state.State, styled bool) {
	p := printer{w: w, styled: styled}
	p.println(p.style(titleStyle, fmt.Sprintf("Stack %s will be destroyed:", st.Stack)))
	for _, id := range st.IDs() {
		p.println(p.style(actionStyles[provisioning.ActionDelete], fmt.Sprintf("  %3s %s", actionMarks[provisioning.ActionDelete], id)))
	}
}

// renderOutputs prints the stack outputs sorted by name.
func renderOutputs(w io.Writer, outputs map[string]string, styled bool) {
	if len(outputs) == 0 {
		return
	}
	p := printer{w: w, styled: styled}
	p.println("")
	p.println(p.style(sectionStyle, "Outputs"))
	for _, k := range slices.Sorted(maps.Keys(outputs)) {
		p.println(fmt.Sprintf("  %s = %s", p.style(dimStyle, k), outputs[k]))
	}
}

// renderGraph lists the resources in apply order with their direct
// dependencies and dependents.
func renderGraph(w io.Writer, g *graph.Graph, styled bool) {
	p := printer{w: w, styled: styled}
	for _, id := range g.TopoOrder() {
		p.println(p.style(sectionStyle, id.String()))
		if deps := g.Dependencies(id); len(deps) > 0 {
			p.println(p.style(dimStyle, "  depends on:  ") + joinIDs(deps))
		}
		if dependents := g.Dependents(id); len(dependents) > 0 {
			p.println(p.style(dimStyle, "  required by: ") + joinIDs(dependents))
		}
	}
}

func joinIDs(ids []graph.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
