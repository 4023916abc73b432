package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/model"
)

func salesGraph(t *testing.T) *Graph {
	t.Helper()
	m := model.NewScriptedModel()
	g, err := NewBuilder().
		AddAgent(newAgent(t, "Sales_Staff", "Sales_Manager", true, m)).
		AddAgent(newAgent(t, "Sales_Manager", "Sales_Staff", false, m)).
		Compile()
	require.NoError(t, err)
	return g
}

func TestMermaid(t *testing.T) {
	out := Mermaid(salesGraph(t))

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "__start__ --> Sales_Staff")
	assert.Contains(t, out, `Sales_Staff -- "continue" --> Sales_Manager`)
	assert.Contains(t, out, `Sales_Manager -- "invoke_tool" --> ToolKit`)
	assert.Contains(t, out, `Sales_Staff -- "end" --> __end__`)
	assert.Contains(t, out, `ToolKit -. "sender" .-> Sales_Manager`)
	assert.Contains(t, out, `ToolKit[["ToolKit"]]`)
}

func TestPlantUML(t *testing.T) {
	out := PlantUML(salesGraph(t))
	lines := strings.Split(out, "\n")

	assert.Equal(t, "@startuml", lines[0])
	assert.Equal(t, "(*) --> Sales_Staff", lines[1])
	assert.Equal(t, "@enduml", lines[len(lines)-1])
	assert.Contains(t, out, "Sales_Staff --> [continue] Sales_Manager")
	assert.Contains(t, out, "Sales_Manager --> [end] (*)")
	assert.Contains(t, out, "ToolKit --> [sender] Sales_Staff")
}

func TestPlantUML_QuotesNames(t *testing.T) {
	m := model.NewScriptedModel()
	g, err := NewBuilder().AddAgent(newAgent(t, "Market Analyst", "Market Analyst", true, m)).Compile()
	require.NoError(t, err)

	assert.Contains(t, PlantUML(g), `"Market Analyst" --> [continue] "Market Analyst"`)
	assert.Contains(t, Mermaid(g), `Market_Analyst["Market Analyst"]`)
}
