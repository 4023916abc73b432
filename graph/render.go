package graph

import (
	"fmt"
	"strings"
)

// Mermaid renders the graph as a Mermaid flowchart. Agents are rectangles,
// the tool node is a subroutine and the entry agent is marked from a start
// circle.
func Mermaid(g *Graph) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    __start__((start))\n")

	for _, id := range g.order {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", mermaidID(id), escapeLabel(id)))
	}
	sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", mermaidID(ToolNode), ToolNode))
	sb.WriteString(fmt.Sprintf("    %s((end))\n", mermaidID(End)))

	sb.WriteString(fmt.Sprintf("    __start__ --> %s\n", mermaidID(g.entry)))
	for _, e := range g.Edges() {
		arrow := fmt.Sprintf("-- \"%s\" -->", e.Label)
		if e.From == ToolNode {
			arrow = fmt.Sprintf("-. \"%s\" .->", e.Label)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", mermaidID(e.From), arrow, mermaidID(e.To)))
	}

	return sb.String()
}

// PlantUML renders the graph as a PlantUML activity diagram. Start and end
// are both drawn as (*).
func PlantUML(g *Graph) string {
	lines := []string{"@startuml", "(*) --> " + plantID(g.entry)}
	for _, e := range g.Edges() {
		to := plantID(e.To)
		if e.To == End {
			to = "(*)"
		}
		lines = append(lines, fmt.Sprintf("%s --> [%s] %s", plantID(e.From), e.Label, to))
	}
	lines = append(lines, "@enduml")
	return strings.Join(lines, "\n")
}

func mermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}

func escapeLabel(s string) string { return strings.ReplaceAll(s, "\"", "'") }

func plantID(id string) string {
	if strings.ContainsAny(id, " -./") {
		return "\"" + id + "\""
	}
	return id
}
