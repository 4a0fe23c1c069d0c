package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-env-file"))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"serve", "migrate", "dead", "purge"})
}

func TestPurge_RequiresConfirmation(t *testing.T) {
	_, err := execute(t, "purge")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestPurge_RefusedInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "pro")

	_, err := execute(t, "purge", "--yes")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestDeadReplay_RejectsInvalidID(t *testing.T) {
	_, err := execute(t, "dead", "replay", "not-a-uuid")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid record id")
}

func TestDeadReplay_RequiresID(t *testing.T) {
	_, err := execute(t, "dead", "replay")

	assert.Error(t, err)
}

func TestStorage_AdminRejectsUnknownTable(t *testing.T) {
	_, err := storage{}.admin("events")

	assert.ErrorContains(t, err, "unknown table")
}
