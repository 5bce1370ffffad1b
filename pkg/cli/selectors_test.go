package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guacaman/internal/domain"
)

func parseSelector(t *testing.T, args ...string) (domain.Selector, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "probe"}
	addSelectorFlags(cmd, domain.KindConn)
	require.NoError(t, cmd.ParseFlags(args))
	return selectorFromFlags(cmd, domain.KindConn)
}

func TestSelectorFromFlags(t *testing.T) {
	sel, err := parseSelector(t, "--name", "vm1")
	require.NoError(t, err)
	assert.Equal(t, domain.ByName("vm1"), sel)

	sel, err = parseSelector(t, "--id", "7")
	require.NoError(t, err)
	assert.Equal(t, domain.ByID(7), sel)
}

func TestSelectorFromFlagsRejectsBadCombinations(t *testing.T) {
	var ue *domain.UsageError

	_, err := parseSelector(t)
	require.ErrorAs(t, err, &ue)

	_, err = parseSelector(t, "--name", "vm1", "--id", "7")
	require.ErrorAs(t, err, &ue)

	// An explicit zero is out of range, not "unset".
	_, err = parseSelector(t, "--id", "0")
	require.ErrorAs(t, err, &ue)

	_, err = parseSelector(t, "--id", "-3")
	require.ErrorAs(t, err, &ue)
}

func TestParseSetFlags(t *testing.T) {
	attrs, err := parseSetFlags([]string{"hostname=10.0.0.1", "port=5901"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hostname": "10.0.0.1", "port": "5901"}, attrs)

	// Values may contain '='.
	attrs, err = parseSetFlags([]string{"password=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "a=b", attrs["password"])

	var ue *domain.UsageError
	_, err = parseSetFlags([]string{"nokey"})
	require.ErrorAs(t, err, &ue)
	_, err = parseSetFlags([]string{"=value"})
	require.ErrorAs(t, err, &ue)

	attrs, err = parseSetFlags(nil)
	require.NoError(t, err)
	assert.Nil(t, attrs)
}

func parseSubject(t *testing.T, args ...string) (subjectFlags, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "probe"}
	addSubjectFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return subjectFromFlags(cmd)
}

func TestSubjectFromFlags(t *testing.T) {
	s, err := parseSubject(t, "--permit", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Permit)
	assert.Equal(t, domain.SubjectUser, s.SubjectKind)

	s, err = parseSubject(t, "--deny-group", "ops")
	require.NoError(t, err)
	assert.Equal(t, "ops", s.Deny)
	assert.Equal(t, domain.SubjectUserGroup, s.SubjectKind)

	var ue *domain.UsageError
	_, err = parseSubject(t, "--permit", "alice", "--deny-group", "ops")
	require.ErrorAs(t, err, &ue)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(domain.ErrUsage("bad flags")))
	assert.Equal(t, 1, exitCode(domain.ErrBusinessRule("cycle")))
	assert.Equal(t, 1, exitCode(domain.ErrNotFound(domain.KindUser, "alice")))
	assert.Equal(t, 1, exitCode(errExistsMiss))
}
