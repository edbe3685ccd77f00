package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCommandCompilesWithoutRunning(t *testing.T) {
	path := writeConfig(t, `
log:
  level: error
  human: false
plugins:
  list:
    - name: Thrower
      source: 'throw new Error("never runs")'
    - name: Counter
      runtime: lua
      source: 'function deactivate() end'
`)

	lines, err := execute(t, "", "check", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"runtimes: js, lua", "ok   Thrower", "ok   Counter", "config ok, 2 plugins"}, lines)
}

func TestCheckCommandReportsCompileFailures(t *testing.T) {
	path := writeConfig(t, `
log:
  level: error
  human: false
plugins:
  list:
    - name: Good
      source: 'editor.log("hi")'
    - name: Broken
      runtime: lua
      source: 'function ('
`)

	lines, err := execute(t, "", "check", "--config", path)
	require.Error(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "runtimes: js, lua", lines[0])
	assert.Equal(t, "ok   Good", lines[1])
	assert.Contains(t, lines[2], "FAIL Broken")
}
