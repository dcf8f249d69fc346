package workflow

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/inboxflow/inboxflow/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "name": "Support triage",
  "nodes": [
    {"id": "1", "name": "Inbox", "type": "n8n-nodes-base.gmailTrigger", "typeVersion": 1.2, "position": [0, 0], "parameters": {"pollTimes": {"item": [{"mode": "everyMinute"}]}}},
    {"id": "2", "name": "Route", "type": "n8n-nodes-base.switch", "typeVersion": 3, "position": [220, 0], "parameters": {}}
  ],
  "connections": {"Inbox": {"main": [[{"node": "Route", "type": "main", "index": 0}]]}},
  "settings": {"executionOrder": "v1"}
}`

func TestParse(t *testing.T) {
	t.Run("Should decode the engine document shape", func(t *testing.T) {
		wf, err := Parse([]byte(sampleDocument))

		require.NoError(t, err)
		assert.Equal(t, "Support triage", wf.Name)
		require.Len(t, wf.Nodes, 2)
		assert.Equal(t, [2]float64{220, 0}, wf.Nodes[1].Position)
		assert.Equal(t, 1, wf.ConnectionCount())
		assert.Equal(t, "v1", wf.Settings["executionOrder"])
	})

	t.Run("Should report offset, position and excerpt on syntax errors", func(t *testing.T) {
		data := []byte("{\n  \"name\": \"O\"Brien\"\n}")

		_, err := Parse(data)

		require.Error(t, err)
		var parseErr *core.SubstitutionParseError
		require.ErrorAs(t, err, &parseErr)
		assert.ErrorIs(t, err, core.ErrSubstitutionParse)
		assert.Equal(t, 2, parseErr.Line)
		assert.Greater(t, parseErr.Offset, int64(0))
		assert.Contains(t, parseErr.Excerpt, "Brien")
	})

	t.Run("Should report type errors with offsets", func(t *testing.T) {
		_, err := Parse([]byte(`{"name": 12}`))

		var parseErr *core.SubstitutionParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Positive(t, parseErr.Offset)
	})
}

func TestExcerpt(t *testing.T) {
	t.Run("Should not cut multi-byte runes", func(t *testing.T) {
		data := []byte(strings.Repeat("é", 60))

		got := Excerpt(data, 41)

		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("é", 41), got)
	})

	t.Run("Should clamp offsets outside the buffer", func(t *testing.T) {
		data := []byte("日本語")

		assert.Equal(t, "日本語", Excerpt(data, 0))
		assert.Equal(t, "日本語", Excerpt(data, int64(len(data))))
		assert.Empty(t, Excerpt(data, 500))
	})
}

func TestParseStrict(t *testing.T) {
	t.Run("Should reject objects that repeat a key", func(t *testing.T) {
		_, err := ParseStrict([]byte(`{"name":"a","nodes":[],"settings":{"x":1,"y":{"z":2},"x":3}}`))

		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate key "x"`)
	})

	t.Run("Should accept repeated keys in sibling objects", func(t *testing.T) {
		_, err := ParseStrict([]byte(`{"name":"a","nodes":[{"name":"n","parameters":{"k":"v"}},{"name":"m","parameters":{"k":"v"}}]}`))

		require.NoError(t, err)
	})
}

func TestMarshal(t *testing.T) {
	t.Run("Should not escape HTML characters", func(t *testing.T) {
		data, err := Marshal(&Workflow{Name: `Pools & Spa <Main>`})

		require.NoError(t, err)
		assert.Contains(t, string(data), `Pools & Spa <Main>`)
	})

	t.Run("Should be stable across parse cycles", func(t *testing.T) {
		wf, err := Parse([]byte(sampleDocument))
		require.NoError(t, err)
		first, err := Marshal(wf)
		require.NoError(t, err)

		again, err := Parse(first)
		require.NoError(t, err)
		second, err := Marshal(again)
		require.NoError(t, err)

		assert.Equal(t, string(first), string(second))
	})
}

func TestWorkflow_Clone(t *testing.T) {
	t.Run("Should not share nested state with the original", func(t *testing.T) {
		wf, err := Parse([]byte(sampleDocument))
		require.NoError(t, err)

		cp := wf.Clone()
		cp.Nodes[0].Parameters["pollTimes"] = "changed"
		cp.Connections["Inbox"]["main"][0][0].Node = "Elsewhere"
		cp.Settings["executionOrder"] = "v0"

		assert.NotEqual(t, "changed", wf.Nodes[0].Parameters["pollTimes"])
		assert.Equal(t, "Route", wf.Connections["Inbox"]["main"][0][0].Node)
		assert.Equal(t, "v1", wf.Settings["executionOrder"])
	})
}

func TestWorkflow_EnsureNodeIDs(t *testing.T) {
	t.Run("Should assign deterministic ids only to nodes without one", func(t *testing.T) {
		a := &Workflow{Nodes: []Node{{Name: "Inbox"}, {ID: "keep", Name: "Route"}}}
		b := &Workflow{Nodes: []Node{{Name: "Inbox"}}}

		a.EnsureNodeIDs("gmail")
		b.EnsureNodeIDs("gmail")

		assert.NotEmpty(t, a.Nodes[0].ID)
		assert.Equal(t, a.Nodes[0].ID, b.Nodes[0].ID)
		assert.Equal(t, "keep", a.Nodes[1].ID)
	})
}

func TestWorkflow_DanglingConnections(t *testing.T) {
	t.Run("Should list names that do not match a node", func(t *testing.T) {
		wf := &Workflow{
			Nodes: []Node{{Name: "Inbox"}},
			Connections: Connections{
				"Inbox": {"main": {{{Node: "Ghost", Type: "main"}}}},
				"Other": {"main": {{{Node: "Inbox", Type: "main"}}}},
			},
		}

		assert.Equal(t, []string{"Ghost", "Other"}, wf.DanglingConnections())
	})
}

func TestNewFallback(t *testing.T) {
	t.Run("Should build an empty named template", func(t *testing.T) {
		wf := NewFallback(ProviderOutlook)

		assert.Equal(t, "fallback-outlook", wf.Name)
		assert.Empty(t, wf.Nodes)
		assert.True(t, wf.IsFallback())
	})
}
