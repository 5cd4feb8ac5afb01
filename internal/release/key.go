package release

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey 表示仓库路径不满足 host/owner/repo 结构。
var ErrInvalidKey = errors.New("invalid repository path")

// Key 唯一标识一个被缓存的仓库。cgit 这类基于路径的源 Owner 为空。
// Key 在解析后不可变，同时充当缓存分区键与 single-flight 锁键。
type Key struct {
	Host  string
	Owner string
	Repo  string
}

// ParseKey 解析 host/owner/repo 形式的路径。三段都不能为空。
func ParseKey(path string) (Key, error) {
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Key{}, fmt.Errorf("%w: %s", ErrInvalidKey, path)
	}
	return Key{Host: parts[0], Owner: parts[1], Repo: parts[2]}, nil
}

// PathKey 构造 Owner 为空的 Key，用于 cgit 等以仓库路径定位的源。
// repoPath 可以包含任意多级目录，例如 pub/scm/linux/kernel/git/stable/linux.git。
func PathKey(host, repoPath string) (Key, error) {
	host = strings.Trim(host, "/")
	repoPath = strings.Trim(repoPath, "/")
	if host == "" || repoPath == "" {
		return Key{}, fmt.Errorf("%w: %s/%s", ErrInvalidKey, host, repoPath)
	}
	return Key{Host: host, Repo: repoPath}, nil
}

// String 输出 host/owner/repo 形式的缓存键；Owner 为空时折叠为 host/repo。
func (k Key) String() string {
	if k.Owner == "" {
		return k.Host + "/" + k.Repo
	}
	return k.Host + "/" + k.Owner + "/" + k.Repo
}

// IsZero 判断 Key 是否未初始化。
func (k Key) IsZero() bool {
	return k.Host == "" && k.Owner == "" && k.Repo == ""
}
