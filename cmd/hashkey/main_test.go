package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abduss/artifactdrive/internal/auth"
)

func TestHashKeyCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--cost", "4", "hashkey-test-key-123456"})

	require.NoError(t, cmd.Execute())

	verifier, err := auth.NewKeyVerifier(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify("hashkey-test-key-123456"))
}

func TestHashKeyCommandRejectsShortKey(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"short"})

	assert.Error(t, cmd.Execute())
}

func TestHashKeyCommandHashesStaffPassword(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--cost", "4", "--password", "shortpw1"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out.String()), "$2a$"))
}
