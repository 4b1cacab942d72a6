package main

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/dropDatabas3/hellobroker/internal/config"
	"github.com/dropDatabas3/hellobroker/internal/security/secretbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysGenSecretbox(t *testing.T) {
	cmd := newKeysCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"gen-secretbox"})
	require.NoError(t, cmd.Execute())

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestAppCreateRequiresName(t *testing.T) {
	key, err := secretbox.GenerateKey()
	require.NoError(t, err)
	cfg := config.FromEnv()
	cfg.Storage.Driver = "memory"
	cfg.Security.SecretBoxMasterKey = key

	cmd := newAppCmd(func() *config.Config { return cfg })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"create"})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name")
}

func TestAppCreateWithMemoryStore(t *testing.T) {
	key, err := secretbox.GenerateKey()
	require.NoError(t, err)
	cfg := config.FromEnv()
	cfg.Storage.Driver = "memory"
	cfg.Security.SecretBoxMasterKey = key

	cmd := newAppCmd(func() *config.Config { return cfg })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"create", "--name", "game", "--allow-redirect", "https://game.example/cb"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "App created: game")
	assert.Contains(t, out.String(), "BEGIN PUBLIC KEY")
}

func TestAppAllowRedirectRejectsBadID(t *testing.T) {
	cfg := config.FromEnv()
	cfg.Storage.Driver = "memory"

	cmd := newAppCmd(func() *config.Config { return cfg })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"allow-redirect", "--app", "nope", "--uri", "https://x.example/"})
	require.Error(t, cmd.Execute())
}

func TestEnvOr(t *testing.T) {
	t.Setenv("BROKER_TEST_VAR", "x")
	assert.Equal(t, "x", envOr("BROKER_TEST_VAR", "d"))
	assert.Equal(t, "d", envOr("BROKER_TEST_UNSET", "d"))
}
