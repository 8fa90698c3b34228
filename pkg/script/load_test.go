package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketram/parley/pkg/domain"
)

const sampleYAML = `
nodes:
  greet:
    response: "Hello! What can I get you?"
    transitions:
      - { dest: order, match: contains, pattern: coffee }
      - { dest: greet, match: any }
  order:
    response: "Coming right up."
    transitions:
      - { dest: greet, match: exact, pattern: thanks }
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, s, 2)

	greet := s["greet"]
	assert.Equal(t, "Hello! What can I get you?", greet.Response)
	require.Len(t, greet.Transitions, 2)
	assert.Equal(t, "order", greet.Transitions[0].Dest)
	assert.True(t, greet.Transitions[0].Cond(domain.NewMessage("one coffee"), nil))
	assert.False(t, greet.Transitions[0].Cond(domain.NewMessage("tea"), nil))
	assert.True(t, greet.Transitions[1].Cond(domain.NewMessage("anything"), nil))
}

func TestParseRejectsUnknownMatcher(t *testing.T) {
	_, err := Parse([]byte(`
nodes:
  greet:
    response: hi
    transitions:
      - { dest: greet, match: regexp, pattern: ".*" }
`))
	assert.ErrorIs(t, err, ErrUnknownMatcher)
}

func TestParseRejectsDanglingDestination(t *testing.T) {
	_, err := Parse([]byte(`
nodes:
  greet:
    response: hi
    transitions:
      - { dest: nowhere, match: any }
`))
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, s, "greet")

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
