package client

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "ragchat"))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	isolateConfig(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestSaveAndLoadGlobalConfig(t *testing.T) {
	configPath := isolateConfig(t)

	want := &GlobalConfig{APIURL: "http://localhost:8080", AdminToken: "s3cret-admin-token"}
	require.NoError(t, SaveGlobalConfig(want))

	got, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(configPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	configPath := isolateConfig(t)
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

	_, err := LoadGlobalConfig()
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestSaveGlobalConfig_Nil(t *testing.T) {
	isolateConfig(t)
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestDeleteGlobalConfig(t *testing.T) {
	configPath := isolateConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://x"}))

	require.NoError(t, DeleteGlobalConfig())
	_, err := os.Stat(configPath)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, DeleteGlobalConfig(), "deleting a missing file is not an error")
}

func TestResolveConfig(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		isolateConfig(t)
		source, cfg := ResolveConfig()
		assert.Equal(t, SourceDefault, source)
		assert.Equal(t, defaultAPIURL, cfg.APIURL)
	})

	t.Run("global config", func(t *testing.T) {
		isolateConfig(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://saved", AdminToken: "tok"}))
		source, cfg := ResolveConfig()
		assert.Equal(t, SourceGlobalConfig, source)
		assert.Equal(t, "http://saved", cfg.APIURL)
		assert.Equal(t, "tok", cfg.AdminToken)
	})

	t.Run("env", func(t *testing.T) {
		isolateConfig(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://saved", AdminToken: "tok"}))
		t.Setenv(envAPIURL, "http://env")
		source, cfg := ResolveConfig()
		assert.Equal(t, SourceEnv, source)
		assert.Equal(t, "http://env", cfg.APIURL)
		assert.Equal(t, "tok", cfg.AdminToken)
	})
}

func TestAuthLogin_StoresSettings(t *testing.T) {
	isolateConfig(t)

	var out bytes.Buffer
	require.NoError(t, runAuthLogin(&out, "admin-token-value", "https://rag.example.com"))
	assert.Equal(t, "Settings saved\n", out.String())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, "https://rag.example.com", config.APIURL)
	assert.Equal(t, "admin-token-value", config.AdminToken)
}

func TestAuthLogin_RejectsBadURL(t *testing.T) {
	isolateConfig(t)

	err := runAuthLogin(&bytes.Buffer{}, "", "localhost:8080")
	assert.ErrorContains(t, err, "invalid API URL")

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestAuthStatus(t *testing.T) {
	isolateConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://saved", AdminToken: "abcd-long-admin-token"}))

	var out bytes.Buffer
	require.NoError(t, runAuthStatus(&out, false))
	assert.Equal(t, "Source: global_config\nAPI URL: http://saved\nAdmin token: abcd...oken\n", out.String())

	out.Reset()
	require.NoError(t, runAuthStatus(&out, true))
	var status map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, "global_config", status["source"])
	assert.Equal(t, true, status["has_token"])
	assert.Equal(t, "abcd...oken", status["admin_token"])
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "abcd...wxyz", maskToken("abcdefghijklmnopqrstuvwxyz"))
}
