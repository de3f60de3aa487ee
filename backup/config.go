package backup

import "github.com/ceyewan/confkeep/xerrors"

// DefaultMaxBackups 备份目录默认保留的快照上限
const DefaultMaxBackups = 50

// Config 备份存储配置
type Config struct {
	ConfigID   string // 配置标识，用于快照文件名前缀
	FilePath   string // 被快照的实时配置文件路径
	Dir        string // 快照目录
	Ext        string // 快照扩展名（不含点），默认 "jsonc"
	MaxBackups int    // 保留上限，默认 DefaultMaxBackups
}

// validate 设置默认值并验证配置
func (c *Config) validate() error {
	if c.ConfigID == "" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "backup: ConfigID is required")
	}
	if c.FilePath == "" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "backup: FilePath is required")
	}
	if c.Dir == "" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "backup: Dir is required")
	}
	if c.Ext == "" {
		c.Ext = "jsonc"
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	return nil
}
