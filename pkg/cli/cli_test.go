package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guacaman/internal/service"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()

	expect := map[string][]string{
		"user":      {"new", "list", "exists", "del", "modify"},
		"group":     {"new", "list", "exists", "del", "modify"},
		"conn":      {"new", "list", "exists", "del", "modify"},
		"conngroup": {"new", "list", "exists", "del", "modify"},
	}
	for name, subs := range expect {
		parent, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, name, parent.Name())
		for _, sub := range subs {
			cmd, _, err := root.Find([]string{name, sub})
			require.NoError(t, err, name+" "+sub)
			assert.Equal(t, sub, cmd.Name())
		}
	}
	for _, name := range []string{"dump", "migrate", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootSilencesCobraNoise(t *testing.T) {
	root := newRootCmd()
	assert.True(t, root.SilenceUsage)
	assert.True(t, root.SilenceErrors)
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	err := printYAML(&buf, &service.Dump{
		Users: []service.DumpUser{{Name: "alice", Groups: []string{"ops"}}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "users:"), out)
	assert.Contains(t, out, "name: alice")
	assert.Contains(t, out, "- ops")
}
