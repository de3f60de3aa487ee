// Package store 提供自愈的、保留注释的配置持久化引擎。
//
// Store 拥有唯一权威的内存配置值，负责加载/重载/保存，并把 JSONC 编解码
// （jsonc）、快照存储（backup）、schema 迁移（migrate）编排为一条自愈链：
// 磁盘内容损坏时依次尝试最近有效快照、最后一次有效内存值、编译期默认值，
// 公开操作永不向调用方抛错，细节只见于日志。
//
// 可选的后台任务：文件变更监听（fsnotify + 防抖 + 指纹比对触发重载）与
// 自动保存（定时比对内容哈希，内存值有漂移即落盘）。两个任务相互独立、
// 可单独取消，由 Cleanup 一并回收。
//
// 基本使用：
//
//	type AppConfig struct {
//	    Ver  string `json:"version"`
//	    ID   string `json:"configId"`
//	    Name string `json:"name"`
//	}
//
//	func (c *AppConfig) Version() string           { return c.Ver }
//	func (c *AppConfig) SetVersion(v string)       { c.Ver = v }
//	func (c *AppConfig) ConfigID() string          { return c.ID }
//	func (c *AppConfig) Clone() store.Payload      { dup := *c; return &dup }
//
//	st, _ := store.New(&store.Config[*AppConfig]{
//	    Version:   "1.0",
//	    ConfigDir: "/etc/myapp",
//	    Default:   &AppConfig{Ver: "1.0", ID: "myapp", Name: "demo"},
//	    Watcher:   store.WatcherSettings{Enabled: true, DebounceMs: 500},
//	}, store.WithLogger(logger))
//	defer st.Cleanup()
//
//	cfg := st.Current()
package store

import (
	"context"
	"time"
)

// Payload 应用提供的配置负载契约
//
// 引擎只通过序列化按结构读写负载，从不解释业务字段。version 与 configId
// 是仅有的两个必需字段，通过访问器暴露；Clone 必须返回深拷贝，是自愈链
// 和迁移不被外部持有者污染的基础。
type Payload interface {
	// Version 返回负载当前携带的 schema 版本
	Version() string
	// SetVersion 覆写 schema 版本（迁移和自愈路径使用）
	SetVersion(version string)
	// ConfigID 返回稳定标识，用于文件与目录命名
	ConfigID() string
	// Clone 返回负载的深拷贝
	Clone() Payload
}

// Store 配置存储接口
//
// 所有公开操作都不向调用方传播内部错误；错误在操作边界内走自愈链解决。
type Store[T Payload] interface {
	// Current 返回当前配置值，永不阻塞、永不失败
	//
	// 返回的是活引用：调用方可以直接修改它，自动保存任务会把漂移落盘。
	Current() T

	// Reload 从磁盘重载配置
	//
	// 幂等：文件不存在时写出默认值；修改时间与大小均未变化时为空操作；
	// 解析失败或版本不匹配时分别进入自愈链或迁移。
	Reload()

	// ReloadManually 是 Reload 的别名，供监听器之外的调用方主动刷新
	ReloadManually()

	// Save 序列化 cfg 并覆盖配置文件，同时使 cfg 成为当前值
	//
	// 写盘失败只记日志：内存配置始终是权威，与磁盘结果无关。
	Save(cfg T)

	// Update 在存储锁内原地修改当前值，避免与后台任务竞争
	Update(mutate func(T))

	// Subscribe 订阅提交事件（重载、迁移、自愈落盘后触发）
	//
	// 通过 ctx 取消订阅；通道缓冲满时事件被丢弃并记警告日志。
	Subscribe(ctx context.Context) <-chan Event[T]

	// EnableWatcher 幂等地启动文件变更监听任务
	EnableWatcher()
	// DisableWatcher 请求监听任务协作取消并等待其停止观察
	DisableWatcher()

	// EnableAutoSave 幂等地启动自动保存任务
	EnableAutoSave()
	// DisableAutoSave 请求自动保存任务协作取消并等待其停止
	DisableAutoSave()

	// Cleanup 取消全部后台任务并关闭订阅通道；之后引擎不可再用
	Cleanup()
}

// Event 配置提交事件
type Event[T Payload] struct {
	Config    T
	Source    string // SourceReload | SourceMigration | SourceSelfHeal
	Timestamp time.Time
}

// 事件来源
const (
	SourceReload    = "reload"
	SourceMigration = "migration"
	SourceSelfHeal  = "selfheal"
)

// New 创建配置存储
//
// 构造后立即执行一次加载（文件缺失时写出默认值），并按 WatcherSettings
// 启动相应后台任务。
func New[T Payload](cfg *Config[T], opts ...Option) (Store[T], error) {
	if cfg == nil {
		cfg = &Config[T]{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	options := applyOptions(opts...)
	return newStore(cfg, options)
}
