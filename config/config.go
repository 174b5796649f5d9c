// Package config 加载服务配置
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"cardioserve/logger"
	"cardioserve/ml"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Artifacts ArtifactConfig `yaml:"artifacts"`
	Model     ModelConfig    `yaml:"model"`
	Cache     CacheConfig    `yaml:"cache"`
	Log       logger.Config  `yaml:"log"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type ArtifactConfig struct {
	ScalerPath  string `yaml:"scaler_path"`
	WeightsPath string `yaml:"weights_path"`
}

type ModelConfig struct {
	EmbedDim  int   `yaml:"embed_dim"`
	NumHeads  int   `yaml:"num_heads"`
	NumLayers int   `yaml:"num_layers"`
	MLPHidden int   `yaml:"mlp_hidden"`
	Seed      int64 `yaml:"seed"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

// Default 与原服务的固定行为一致：0.0.0.0:8000，工作目录下的模型文件
func Default() *Config {
	net := ml.DefaultNetConfig()
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
		Artifacts: ArtifactConfig{
			ScalerPath:  "scaler.yaml",
			WeightsPath: "cardio_tabnet_best.pt",
		},
		Model: ModelConfig{
			EmbedDim:  net.EmbedDim,
			NumHeads:  net.NumHeads,
			NumLayers: net.NumLayers,
			MLPHidden: net.MLPHidden,
		},
		Cache: CacheConfig{Size: 1024},
		Log:   logger.DefaultConfig(),
	}
}

// Load 读取 YAML 配置，未设置的字段保留默认值。文件不存在时返回默认配置
func Load(path string) (*Config, error) {
	config := Default()
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("server.timeout must be positive")
	}
	if c.Artifacts.ScalerPath == "" || c.Artifacts.WeightsPath == "" {
		return errors.New("artifact paths are required")
	}
	if c.Cache.Size < 0 {
		return errors.New("cache.size must not be negative")
	}
	return c.NetConfig().Validate()
}

// NetConfig 网络结构，输入维度固定为 13 个特征
func (c *Config) NetConfig() ml.NetConfig {
	net := ml.DefaultNetConfig()
	net.EmbedDim = c.Model.EmbedDim
	net.NumHeads = c.Model.NumHeads
	net.NumLayers = c.Model.NumLayers
	net.MLPHidden = c.Model.MLPHidden
	return net
}

