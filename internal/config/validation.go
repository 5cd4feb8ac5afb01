package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if g.CachePath == "" {
		return newFieldError("CachePath", "不能为空")
	}
	if g.CacheTTL.DurationValue() <= 0 {
		return newFieldError("CacheTTL", "必须大于 0")
	}
	if g.FailureBackoff.DurationValue() <= 0 {
		return newFieldError("FailureBackoff", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("UpstreamTimeout", "必须大于 0")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}

	if err := validateEndpoint(c.Provider.GitHubAPI); err != nil {
		return fmt.Errorf("Provider.GitHubAPI: %w", err)
	}
	if err := validateEndpoint(c.Provider.GitLabAPI); err != nil {
		return fmt.Errorf("Provider.GitLabAPI: %w", err)
	}

	return nil
}

// validateEndpoint 只校验显式配置的端点；留空表示使用官方地址。
func validateEndpoint(raw string) error {
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
