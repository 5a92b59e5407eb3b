package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cyberinferno/clickergame/session"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			URL: "ws://localhost:8080/game/",
		},
		Client: ClientConfig{
			WriteTimeout:    10 * time.Second,
			CloseTimeout:    5 * time.Second,
			SendQueueSize:   64,
			EventBufferSize: 64,
			ReadLimit:       4096,
		},
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    "state.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, session.DefaultURL, cfg.Server.URL)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, 10*time.Second, cfg.Client.WriteTimeout)
	assert.Equal(t, time.Duration(0), cfg.Client.HandshakeTimeout)
	assert.Equal(t, 64, cfg.Client.SendQueueSize)
	assert.Equal(t, int64(0), cfg.Client.ReadLimit)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clicker.yaml")
	err := os.WriteFile(path, []byte(`
server:
  url: ws://127.0.0.1:9000/game/
client:
  handshake_timeout: 3s
  write_timeout: 2s
  close_timeout: 1s
  send_queue_size: 8
  event_buffer_size: 4
store:
  backend: redis
  redis:
    addr: 127.0.0.1:6380
    db: 2
    prefix: "test:"
logging:
  level: debug
  format: console
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:9000/game/", cfg.Server.URL)
	assert.Equal(t, 3*time.Second, cfg.Client.HandshakeTimeout)
	assert.Equal(t, 8, cfg.Client.SendQueueSize)
	assert.Equal(t, 4, cfg.Client.EventBufferSize)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "127.0.0.1:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "test:", cfg.Store.Redis.Prefix)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CLICKER_SERVER_URL", "ws://example.test:81/game/")
	t.Setenv("CLICKER_STORE_BACKEND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ws://example.test:81/game/", cfg.Server.URL)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadFromViperRejectsInvalid(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("store.backend", "sqlite")

	_, err := LoadFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestValidateServerURL(t *testing.T) {
	for _, raw := range []string{
		"ws://clicker-game-server.herokuapp.com:80/game/",
		"ws://localhost/game/",
	} {
		cfg := validConfig()
		cfg.Server.URL = raw
		assert.NoError(t, cfg.Validate(), "url %q should be valid", raw)
	}

	for _, raw := range []string{
		"wss://localhost/game/",
		"http://localhost/game/",
		"ws://localhost/play/",
		"ws://localhost/game",
		"ws:///game/",
		"://bad",
	} {
		cfg := validConfig()
		cfg.Server.URL = raw
		assert.Error(t, cfg.Validate(), "url %q should be invalid", raw)
	}
}

func TestValidateStoreBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Backend = BackendMemory
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Backend = BackendRedis
	cfg.Store.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Backend = "bolt"
	assert.Error(t, cfg.Validate())
}

func TestValidateLogging(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}

	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateClient(t *testing.T) {
	cfg := validConfig()
	cfg.Client.SendQueueSize = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Client.CloseTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Client.EventBufferSize = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.URL = "http://localhost/"
	cfg.Client.SendQueueSize = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.url")
	assert.Contains(t, err.Error(), "client.send_queue_size")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestSessionAndLoggerConversion(t *testing.T) {
	cfg := validConfig()
	cfg.Client.HandshakeTimeout = time.Second

	sc := cfg.Session()
	assert.Equal(t, cfg.Server.URL, sc.Client.URL)
	assert.Equal(t, time.Second, sc.Client.HandshakeTimeout)
	assert.Equal(t, 64, sc.Client.SendQueueSize)
	assert.Equal(t, 64, sc.EventBufferSize)

	lc := cfg.Logger()
	assert.Equal(t, "clicker", lc.Service)
	assert.Equal(t, "json", lc.Format)
}

func TestProperty_QueueSizeValidation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(-100, 1000).Draw(t, "size")
		cfg := validConfig()
		cfg.Client.SendQueueSize = size

		err := cfg.Validate()
		if size >= 1 {
			assert.NoError(t, err)
		} else {
			assert.Error(t, err)
		}
	})
}

func TestProperty_PortOverrideKeepsURLValid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		cfg := validConfig()
		cfg.Server.URL = "ws://localhost:" + strconv.Itoa(port) + GamePath
		assert.NoError(t, cfg.Validate())
	})
}
