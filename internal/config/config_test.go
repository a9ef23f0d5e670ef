package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Network.Port)
	assert.Equal(t, 65536, cfg.Transfer.ChunkSize)
	assert.Equal(t, "HELLO\n", cfg.Transfer.Ack)
	assert.Equal(t, "vimsicles", cfg.Receive.Namespace)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"port", func(c *Config) { c.Network.Port = 0 }, ErrInvalidPort},
		{"chunk size", func(c *Config) { c.Transfer.ChunkSize = -1 }, ErrInvalidChunkSize},
		{"ack", func(c *Config) { c.Transfer.Ack = "" }, ErrInvalidAck},
		{"header format", func(c *Config) { c.Transfer.HeaderFormat = "xml" }, ErrInvalidHeaderFormat},
		{"hash", func(c *Config) { c.Transfer.HashAlgorithm = "crc32" }, ErrInvalidHashAlgorithm},
		{"header size", func(c *Config) { c.Transfer.MaxHeaderSize = 0 }, ErrInvalidHeaderSize},
		{"namespace", func(c *Config) { c.Receive.Namespace = "../etc" }, ErrInvalidNamespace},
		{"compression", func(c *Config) { c.Archive.Compression = "bzip2" }, ErrInvalidCompression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vimsicles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network:
  port: 9080
transfer:
  ack: hello
  header_format: legacy
archive:
  compression: zstd
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9080, cfg.Network.Port)
	assert.Equal(t, "hello", cfg.Transfer.Ack)
	assert.Equal(t, "legacy", cfg.Transfer.HeaderFormat)
	assert.Equal(t, "zstd", cfg.Archive.Compression)
	assert.Equal(t, 65536, cfg.Transfer.ChunkSize, "unset keys keep defaults")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VIMSICLES_TRANSFER_HASH_ALGORITHM", "blake3")
	t.Setenv("VIMSICLES_RECEIVE_DIR", "/srv/incoming")

	v := viper.New()
	v.SetEnvPrefix("VIMSICLES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "blake3", cfg.Transfer.HashAlgorithm)
	assert.Equal(t, "/srv/incoming", cfg.Receive.Dir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	v.Set("transfer.chunk_size", 0)

	_, err := Load(v)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}
