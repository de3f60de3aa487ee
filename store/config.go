package store

import (
	"github.com/ceyewan/confkeep/jsonc"
	"github.com/ceyewan/confkeep/xerrors"
)

// 默认后台任务参数。DefaultDebounceMs 由部署层（settings）在引导配置
// 未写 debounceMs 时施加，引擎自身把 DebounceMs 按字面值生效。
const (
	DefaultDebounceMs         = 500
	DefaultAutoSaveIntervalMs = 30_000
)

// WatcherSettings 后台任务配置
//
// 默认监听与自动保存都关闭。
type WatcherSettings struct {
	Enabled            bool `json:"enabled" yaml:"enabled"`                       // 是否在构造时启动文件监听
	DebounceMs         int  `json:"debounceMs" yaml:"debounceMs"`                 // 变更事件防抖毫秒数，>=0，0 表示不防抖
	AutoSaveEnabled    bool `json:"autoSaveEnabled" yaml:"autoSaveEnabled"`       // 是否在构造时启动自动保存
	AutoSaveIntervalMs int  `json:"autoSaveIntervalMs" yaml:"autoSaveIntervalMs"` // 自动保存间隔毫秒数，>0，0 取默认值
}

// Config 存储配置
//
// Metadata 在构造时提供一次，引擎生命周期内不变；修改格式化行为需要
// 重新构造存储（连带重建后台任务）。
type Config[T Payload] struct {
	Version   string          // 编译期当前 schema 版本
	ConfigDir string          // 根目录，实际文件位于 {ConfigDir}/{configId}/config.{ext}
	Default   T               // 编译期默认配置，自愈链的最终兜底
	Metadata  jsonc.Metadata  // 头部/尾部/分区注释与横幅开关
	Watcher   WatcherSettings // 后台任务配置
	Ext       string          // 配置文件扩展名（不含点），默认 "jsonc"
}

// validate 设置默认值并验证配置
func (c *Config[T]) validate() error {
	if c.Version == "" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "store: Version is required")
	}
	if c.ConfigDir == "" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "store: ConfigDir is required")
	}

	var zero T
	if any(c.Default) == any(zero) {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "store: Default payload is required")
	}
	if c.Default.ConfigID() == "" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "store: Default payload must carry a configId")
	}
	if c.Watcher.DebounceMs < 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "store: DebounceMs must be >= 0")
	}

	if c.Ext == "" {
		c.Ext = "jsonc"
	}
	// DebounceMs 按字面值生效，0 即不防抖；部署层的默认值由 settings 施加
	if c.Watcher.AutoSaveIntervalMs <= 0 {
		c.Watcher.AutoSaveIntervalMs = DefaultAutoSaveIntervalMs
	}
	// 头部版本横幅始终使用编译期版本
	c.Metadata.Version = c.Version
	return nil
}
