package krbconf

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	usr, err := user.Current()
	require.NoError(t, err)

	t.Run("writes content with mode 0644", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "krb5.conf")
		require.NoError(t, WriteFile(path, "[libdefaults]\n", usr.Username, ""))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[libdefaults]\n", string(content))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "etc", "krb5", "krb5.conf")
		require.NoError(t, WriteFile(path, "x", usr.Username, ""))

		_, err := os.Stat(path)
		require.NoError(t, err)
	})

	t.Run("overwrites an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "krb5.conf")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0600))

		require.NoError(t, WriteFile(path, "new", usr.Username, ""))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(content))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
	})

	t.Run("unknown owner is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "krb5.conf")
		err := WriteFile(path, "x", "no-such-user-kadminion", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to resolve owner 'no-such-user-kadminion'")
	})

	t.Run("unknown group is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "krb5.conf")
		err := WriteFile(path, "x", usr.Username, "no-such-group-kadminion")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to resolve group 'no-such-group-kadminion'")
	})

	t.Run("unspecified owner and group keep the process identity", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "krb5.conf")
		require.NoError(t, WriteFile(path, "x", "", ""))

		_, err := os.Stat(path)
		require.NoError(t, err)
	})
}
