package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"24h" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为。
type GlobalConfig struct {
	ListenHost      string   `mapstructure:"ListenHost"`
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	CachePath       string   `mapstructure:"CachePath"`
	CacheTTL        Duration `mapstructure:"CacheTTL"`
	FailureBackoff  Duration `mapstructure:"FailureBackoff"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	UserAgent       string   `mapstructure:"UserAgent"`
}

// ProviderConfig 覆盖公共 API 端点，留空时使用官方地址。
type ProviderConfig struct {
	GitHubAPI string `mapstructure:"GitHubAPI"`
	GitLabAPI string `mapstructure:"GitLabAPI"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig   `mapstructure:",squash"`
	Provider ProviderConfig `mapstructure:"Provider"`
}

// ListenAddr 输出 host:port 形式的监听地址。
func (g GlobalConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", g.ListenHost, g.ListenPort)
}
