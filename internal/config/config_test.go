package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProperties(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExplicitPath(t *testing.T) {
	path := writeProperties(t, t.TempDir(), `
mp.etapa=test
mp.accessTokenTest=TEST-123
mp.userIdTest=  777
mp.baseUrl=http://localhost:9999/
mp.endpoint.getOrder=/v2/orders/%s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source())
	assert.True(t, cfg.IsTest())
	assert.Equal(t, "TEST-123", cfg.AccessToken())
	assert.Equal(t, "777", cfg.UserID())
	assert.Equal(t, "http://localhost:9999", cfg.BaseURL())
	assert.Equal(t, "/v2/orders/%s", cfg.Endpoint(EndpointGetOrder))
	assert.Equal(t, "/v1/orders/%s/cancel", cfg.Endpoint(EndpointCancelOrder))
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.properties"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.properties")
}

func TestLoad_FromEnvironment(t *testing.T) {
	path := writeProperties(t, t.TempDir(), "mp.accessTokenTest=ENV-TOKEN\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ENV-TOKEN", cfg.AccessToken())
}

func TestLoad_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeProperties(t, dir, "mp.accessTokenTest=CWD\n")
	t.Setenv(EnvConfigPath, "")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "CWD", cfg.AccessToken())
	assert.Equal(t, DefaultFileName, cfg.Source())
}

func TestConfig_StageSwitchesCredentials(t *testing.T) {
	values := map[string]string{
		"mp.accessTokenTest": "TEST-TOKEN",
		"mp.accessToken":     "PROD-TOKEN",
		"mp.userIdTest":      "1",
		"mp.userId":          "2",
	}

	t.Run("DefaultsToTest", func(t *testing.T) {
		cfg := FromMap(values)
		assert.Equal(t, StageTest, cfg.Stage())
		assert.Equal(t, "TEST-TOKEN", cfg.AccessToken())
		assert.Equal(t, "1", cfg.UserID())
		assert.Equal(t, "mp.accessTokenTest", cfg.AccessTokenKey())
	})

	t.Run("Production", func(t *testing.T) {
		prod := map[string]string{"mp.etapa": " PROD "}
		for k, v := range values {
			prod[k] = v
		}
		cfg := FromMap(prod)
		assert.False(t, cfg.IsTest())
		assert.Equal(t, "PROD-TOKEN", cfg.AccessToken())
		assert.Equal(t, "2", cfg.UserID())
		assert.Equal(t, "mp.userId", cfg.UserIDKey())
	})
}

func TestConfig_Defaults(t *testing.T) {
	cfg := FromMap(map[string]string{
		"mp.timeout.connect": "abc",
		"mp.log.httpMax":     "",
		"mp.events.brokers":  " k1:9092, ,k2:9092 ",
	})

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL())
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 20*time.Second, cfg.SocketTimeout())
	assert.False(t, cfg.LogHTTP())
	assert.Equal(t, DefaultLogHTTPMax, cfg.LogHTTPMax())
	assert.Equal(t, "", cfg.UserID())
	assert.Equal(t, "", cfg.AccessToken())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.EventBrokers())
	assert.Equal(t, DefaultEventsTopic, cfg.EventTopic())
	assert.Equal(t, "", cfg.ContractsDir())

	for name, want := range defaultEndpoints {
		assert.Equal(t, want, cfg.Endpoint(name), name)
	}
}

func TestLoadString(t *testing.T) {
	cfg, err := LoadString("mp.log.http=true\nmp.log.httpMax=10\nmp.contracts.dir= /etc/mpqr/contracts \n")
	require.NoError(t, err)
	assert.True(t, cfg.LogHTTP())
	assert.Equal(t, 10, cfg.LogHTTPMax())
	assert.Equal(t, "/etc/mpqr/contracts", cfg.ContractsDir())
}
