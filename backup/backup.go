// Package backup 提供配置文件的快照存储，用于出错或迁移前留底。
//
// 快照以 {configId}_{reason}_{yyyyMMdd_HHmmss}.{ext} 命名写入备份目录，
// 目录内按文件名降序（零填充时间戳即最新在前）最多保留 50 份，超出的
// 最旧快照被删除。快照和清理的失败只记日志，永不向调用方传播。
//
// 基本使用：
//
//	store, _ := backup.New(&backup.Config{
//	    ConfigID: "app",
//	    FilePath: "/etc/app/app/config.jsonc",
//	    Dir:      "/etc/app/app/backups",
//	}, backup.WithLogger(logger))
//
//	store.Snapshot("pre_migration")
//
//	if payload, ok := store.RestoreLatestValid(); ok {
//	    // payload 是剥离注释后的 JSON 文本
//	}
package backup

// Store 备份存储接口
type Store interface {
	// Snapshot 把当前配置文件复制为带原因标签的快照并执行保留清理
	//
	// 失败只记日志，不传播；配置文件不存在时是空操作。
	Snapshot(reason string)

	// RestoreLatestValid 读取最近一次修改的快照并剥离注释
	//
	// 返回剥离后的 JSON 文本。没有快照、快照为空或不是合法 JSON 时
	// 返回 ("", false)，由调用方继续自愈链的下一步。
	RestoreLatestValid() (string, bool)
}

// New 创建备份存储
func New(cfg *Config, opts ...Option) (Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	options := applyOptions(opts...)
	return newStore(cfg, options), nil
}
