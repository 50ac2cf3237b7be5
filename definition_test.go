package workflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
id: summarizer
name: Summarizer
variables:
  language: en
inputs:
  - name: url
    required: true
outputs:
  - name: summary
    source: summarize.result
nodes:
  - id: start
    type: start
  - id: fetch
    type: task
    tool: http
    depends_on: [start]
    inputs:
      url: ${url}
    retry:
      max_attempts: 3
      delay_seconds: 0.5
      backoff_multiplier: 2
    timeout_seconds: 30
  - id: route
    type: decision
    depends_on: [fetch]
    condition: ${fetch.result} != ""
    true_branch: summarize
    false_branch: giveup
  - id: summarize
    type: task
    agent: writer
    depends_on: [route]
    inputs:
      message: "Summarize: ${fetch.result}"
  - id: giveup
    type: task
    tool: noop
    depends_on: [route]
  - id: end
    type: end
    depends_on: [route]
`

func TestLoadStringYAML(t *testing.T) {
	def, err := LoadString(sampleYAML)
	require.NoError(t, err)
	require.NoError(t, Validate(def).Err())

	assert.Equal(t, "summarizer", def.ID)
	assert.Equal(t, "en", def.Variables["language"])
	require.Len(t, def.Inputs, 1)
	assert.True(t, def.Inputs[0].Required)

	fetch, ok := def.GetNode("fetch")
	require.True(t, ok)
	assert.Equal(t, NodeTypeTask, fetch.Type)
	assert.Equal(t, "${url}", fetch.Inputs["url"])
	require.NotNil(t, fetch.Retry)
	assert.Equal(t, 3, fetch.Retry.MaxAttempts)
	assert.Equal(t, 30.0, fetch.TimeoutSeconds)

	route, ok := def.GetNode("route")
	require.True(t, ok)
	assert.Equal(t, "summarize", route.TrueBranch)
}

func TestLoadFileJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "wf.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0644))
	def, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "summarizer", def.ID)

	// The definition round-trips through JSON with symbolic enum names.
	data, err := json.Marshal(def)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"decision"`)

	jsonPath := filepath.Join(dir, "wf.json")
	require.NoError(t, os.WriteFile(jsonPath, data, 0644))
	reloaded, err := LoadFile(jsonPath)
	require.NoError(t, err)
	require.NoError(t, Validate(reloaded).Err())
	assert.Equal(t, def.NodeIDs(), reloaded.NodeIDs())
}

func TestResultJSONRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	original := &Result{
		ExecutionID:  "exec_01h000000000000000000000ab",
		WorkflowID:   "summarizer",
		WorkflowName: "Summarizer",
		Status:       StatusFailed,
		Error:        "execution failed: nodes fetch did not complete",
		StartedAt:    now,
		CompletedAt:  now.Add(2 * time.Second),
		Duration:     2 * time.Second,
		NodeResults: []*NodeResult{
			{NodeID: "start", Status: NodeStatusCompleted, StartedAt: now, CompletedAt: now},
			{NodeID: "fetch", Status: NodeStatusFailed, Error: "timeout_error: deadline exceeded",
				AttemptCount: 3, StartedAt: now, CompletedAt: now.Add(time.Second)},
			{NodeID: "summarize", Status: NodeStatusSkipped},
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	// Statuses serialize as symbolic names, not ordinals.
	assert.Contains(t, string(data), `"status":"failed"`)
	assert.Contains(t, string(data), `"status":"skipped"`)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.Status, decoded.Status)
	assert.Equal(t, original.Error, decoded.Error)
	require.Len(t, decoded.NodeResults, 3)
	fetch, ok := decoded.NodeResult("fetch")
	require.True(t, ok)
	assert.Equal(t, NodeStatusFailed, fetch.Status)
	assert.Equal(t, 3, fetch.AttemptCount)
}
