package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const businessYAML = `provider: gmail
business:
  name: Blue Lagoon Pools
  category: Pool Service
contact:
  email: info@bluelagoon.example
services:
  - name: Weekly Cleaning
    price: 85
    pricing_type: fixed
labels:
  Urgent: L1
  Sales: L2
  Support: L3
  Supplier: L4
  Manager: L5
credentials:
  gmail: cred-gmail
ai_credential_id: cred-ai
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cmd := RootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	base := []string{"--config", filepath.Join(dir, "missing.yaml"), "--env-file", ""}
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInjectCmd(t *testing.T) {
	t.Run("Should print the personalized workflow", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "business.yaml", businessYAML)

		out, err := execute(t, "inject", path)
		require.NoError(t, err)

		var wf map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &wf))
		assert.Equal(t, "Blue Lagoon Pools - Gmail AI Email Automation", wf["name"])
		assert.NotContains(t, out, "<<<")
	})

	t.Run("Should print the report with --full", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "business.yaml", businessYAML)

		out, err := execute(t, "inject", path, "--full")
		require.NoError(t, err)

		assert.Contains(t, out, `"report"`)
		assert.Contains(t, out, `"pending_credentials"`)
	})

	t.Run("Should fail for a missing business file", func(t *testing.T) {
		_, err := execute(t, "inject", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidateCmd(t *testing.T) {
	t.Run("Should pass for a complete business", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "business.yaml", businessYAML)

		out, err := execute(t, "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, `"valid": true`)
	})

	t.Run("Should fail when the template is incomplete", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "gmail.json", `{"name":"minimal","nodes":[{"name":"Gmail Trigger",`+
			`"type":"n8n-nodes-base.gmailTrigger","typeVersion":1,"position":[0,0],"parameters":{}}],`+
			`"connections":{},"settings":{}}`)
		t.Setenv("INBOXFLOW_TEMPLATES_SOURCE", "dir")
		t.Setenv("INBOXFLOW_TEMPLATES_DIR", dir)
		path := writeFile(t, t.TempDir(), "business.yaml", businessYAML)

		out, err := execute(t, "validate", path)

		assert.ErrorIs(t, err, errInvalidWorkflow)
		assert.Contains(t, out, "Missing router node")
	})
}

func TestDeployCmd(t *testing.T) {
	t.Run("Should refuse to deploy without an n8n api key", func(t *testing.T) {
		t.Setenv("INBOXFLOW_N8N_API_KEY", "")
		path := writeFile(t, t.TempDir(), "business.yaml", businessYAML)

		_, err := execute(t, "deploy", path)
		assert.ErrorContains(t, err, "no workflow engine client")
	})
}
