package handlers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/aries/internal/graph"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/state"
)

func TestRenderPlan_Plain(t *testing.T) {
	t.Parallel()
	plan := &provisioning.Plan{
		Stack:  "aries",
		Serial: 4,
		Steps: []provisioning.Step{
			{ID: graph.ID{Kind: "ssh_key", Name: "ARIES"}, Action: provisioning.ActionNoop},
			{
				ID:     graph.ID{Kind: "server", Name: "test-server"},
				Action: provisioning.ActionReplace,
				Changes: []provisioning.Change{
					{Key: "server_type", Old: "cx33", New: "cx43", ForceNew: true},
				},
			},
			{
				ID:     graph.ID{Kind: "volume", Name: "data-volume"},
				Action: provisioning.ActionUpdate,
				Reason: "server/test-server will be replaced",
			},
		},
	}

	var out bytes.Buffer
	renderPlan(&out, plan, false)

	assert.Equal(t, strings.Join([]string{
		"Stack aries (state serial 4)",
		"",
		"      ssh_key/ARIES",
		"  -/+ server/test-server (replace)",
		`        server_type: "cx33" => "cx43" (forces replacement)`,
		"    ~ volume/data-volume (update)",
		"        because server/test-server will be replaced",
		"",
		"Plan: 0 to create, 1 to update, 1 to replace, 0 to delete, 1 unchanged.",
		"",
	}, "\n"), out.String())
}

func TestDisplayValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"cx33", `"cx33"`},
		{"a\nb", `"a\\nb"`},
		{strings.Repeat("x", 70), `"` + strings.Repeat("x", 60) + `"...`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, displayValue(tt.in))
	}
}

func TestRenderDestroyPlan(t *testing.T) {
	t.Parallel()
	st := state.New("aries")
	st.Put(state.Resource{Kind: "server", Name: "test-server"})

	var out bytes.Buffer
	renderDestroyPlan(&out, st, false)
	assert.Equal(t, "Stack aries will be destroyed:\n    - server/test-server\n", out.String())
}

func TestRenderGraph(t *testing.T) {
	t.Parallel()
	key := graph.ID{Kind: "ssh_key", Name: "ARIES"}
	server := graph.ID{Kind: "server", Name: "test-server"}
	volume := graph.ID{Kind: "volume", Name: "data-volume"}
	g, err := graph.New([]graph.Node{
		{ID: volume, DependsOn: []graph.ID{server}},
		{ID: server, DependsOn: []graph.ID{key}},
		{ID: key},
	})
	assert.NoError(t, err)

	var out bytes.Buffer
	renderGraph(&out, g, false)
	assert.Equal(t, strings.Join([]string{
		"ssh_key/ARIES",
		"  required by: server/test-server",
		"server/test-server",
		"  depends on:  ssh_key/ARIES",
		"  required by: volume/data-volume",
		"volume/data-volume",
		"  depends on:  server/test-server",
		"",
	}, "\n"), out.String())
}

func TestRenderOutputs(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderOutputs(&out, map[string]string{"server_ipv4": "198.51.100.7", "server_id": "1"}, false)
	assert.Equal(t, "\nOutputs\n  server_id = 1\n  server_ipv4 = 198.51.100.7\n", out.String())

	out.Reset()
	renderOutputs(&out, nil, false)
	assert.Empty(t, out.String())
}
