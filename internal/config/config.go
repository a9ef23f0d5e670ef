package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrInvalidPort          = errors.New("port must be between 1 and 65535")
	ErrInvalidChunkSize     = errors.New("chunk size must be greater than 0")
	ErrInvalidAck           = errors.New("acknowledgment literal must not be empty")
	ErrInvalidHeaderFormat  = errors.New("header format must be legacy, delimited or structured")
	ErrInvalidHashAlgorithm = errors.New("hash algorithm must be md5, sha256 or blake3")
	ErrInvalidHeaderSize    = errors.New("max header size must be greater than 0")
	ErrInvalidNamespace     = errors.New("receive namespace must be a single directory name")
	ErrInvalidCompression   = errors.New("archive compression must be gzip, zstd, lz4 or none")
)

// Config holds all application configuration
type Config struct {
	Network  NetworkConfig  `mapstructure:"network"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Receive  ReceiveConfig  `mapstructure:"receive"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
}

// NetworkConfig holds connection settings
type NetworkConfig struct {
	Port int    `mapstructure:"port"`
	Bind string `mapstructure:"bind"`
}

// TransferConfig holds protocol settings. Both peers of a deployment must
// agree on Ack, HeaderFormat and HashAlgorithm; ChunkSize is local tuning.
type TransferConfig struct {
	ChunkSize     int    `mapstructure:"chunk_size"`
	Ack           string `mapstructure:"ack"`
	HeaderFormat  string `mapstructure:"header_format"`
	HashAlgorithm string `mapstructure:"hash_algorithm"`
	MaxHeaderSize int    `mapstructure:"max_header_size"`
}

// ReceiveConfig holds receiver filesystem layout settings
type ReceiveConfig struct {
	Namespace string `mapstructure:"namespace"` // directory under ~/Downloads
	Dir       string `mapstructure:"dir"`       // overrides ~/Downloads/<namespace>
}

// ArchiveConfig holds settings for archives built from folders
type ArchiveConfig struct {
	Compression string `mapstructure:"compression"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// UIConfig holds console output settings
type UIConfig struct {
	Progress bool `mapstructure:"progress"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Port: 8080,
			Bind: "0.0.0.0",
		},
		Transfer: TransferConfig{
			ChunkSize:     64 * 1024, // 64 KB chunks
			Ack:           "HELLO\n",
			HeaderFormat:  "delimited",
			HashAlgorithm: "md5",
			MaxHeaderSize: 4096,
		},
		Receive: ReceiveConfig{
			Namespace: "vimsicles",
		},
		Archive: ArchiveConfig{
			Compression: "gzip",
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Progress: true,
		},
	}
}

// SetDefaults registers every default value with v so that environment
// variables are picked up for keys that appear in no config file.
func SetDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("network.port", d.Network.Port)
	v.SetDefault("network.bind", d.Network.Bind)
	v.SetDefault("transfer.chunk_size", d.Transfer.ChunkSize)
	v.SetDefault("transfer.ack", d.Transfer.Ack)
	v.SetDefault("transfer.header_format", d.Transfer.HeaderFormat)
	v.SetDefault("transfer.hash_algorithm", d.Transfer.HashAlgorithm)
	v.SetDefault("transfer.max_header_size", d.Transfer.MaxHeaderSize)
	v.SetDefault("receive.namespace", d.Receive.Namespace)
	v.SetDefault("receive.dir", d.Receive.Dir)
	v.SetDefault("archive.compression", d.Archive.Compression)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("ui.progress", d.UI.Progress)
}

// Load builds a validated Config from v layered over the defaults
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Network.Port <= 0 || c.Network.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Transfer.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Transfer.Ack == "" {
		return ErrInvalidAck
	}
	switch strings.ToLower(c.Transfer.HeaderFormat) {
	case "legacy", "delimited", "structured":
	default:
		return ErrInvalidHeaderFormat
	}
	switch strings.ToLower(c.Transfer.HashAlgorithm) {
	case "md5", "sha256", "blake3":
	default:
		return ErrInvalidHashAlgorithm
	}
	if c.Transfer.MaxHeaderSize <= 0 {
		return ErrInvalidHeaderSize
	}
	if c.Receive.Namespace == "" || strings.ContainsAny(c.Receive.Namespace, `/\`) ||
		c.Receive.Namespace == "." || c.Receive.Namespace == ".." {
		return ErrInvalidNamespace
	}
	switch strings.ToLower(c.Archive.Compression) {
	case "gzip", "zstd", "lz4", "none":
	default:
		return ErrInvalidCompression
	}
	return nil
}
