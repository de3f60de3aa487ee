// Package settings 为宿主进程提供引擎引导配置的加载能力。
// 基于 Viper 实现，支持 YAML 文件、.env 文件和环境变量三个来源。
//
// 注意区分两类配置：settings 管理的是引擎自身的部署参数（配置根目录、
// 日志、指标、后台任务开关），store 管理的才是应用的业务配置文件。
//
// 配置优先级：环境变量 > .env > 环境特定配置 > 基础配置。
//
// 基本使用：
//
//	loader, err := settings.New(&settings.Config{
//		Name:      "confkeep",
//		Paths:     []string{".", "./config"},
//		EnvPrefix: "CONFKEEP",
//	})
//	if err != nil {
//		panic(err)
//	}
//	if err := loader.Load(context.Background()); err != nil {
//		panic(err)
//	}
//
//	eng, _ := loader.Engine()
//	logger, _ := clog.New(eng.LogConfig())
package settings

import (
	"context"

	"github.com/ceyewan/confkeep/clog"
	"github.com/ceyewan/confkeep/metrics"
	"github.com/ceyewan/confkeep/store"
)

// Loader 定义引导配置加载器的核心行为
type Loader interface {
	// Load 从所有来源加载配置并初始化内部状态
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Engine 反序列化并返回引擎引导配置
	Engine() (*Settings, error)
}

// Settings 引擎引导配置
type Settings struct {
	ConfigDir string          `mapstructure:"configDir"` // 应用配置根目录
	Ext       string          `mapstructure:"ext"`       // 配置文件扩展名，默认 "jsonc"
	Log       LogSettings     `mapstructure:"log"`
	Metrics   MetricsSettings `mapstructure:"metrics"`
	Watcher   WatcherSettings `mapstructure:"watcher"`
}

// LogSettings 日志引导配置
type LogSettings struct {
	Level     string `mapstructure:"level"`  // debug|info|warn|error|fatal
	Format    string `mapstructure:"format"` // json|console
	Output    string `mapstructure:"output"` // stdout|stderr|<file path>
	AddSource bool   `mapstructure:"addSource"`
}

// MetricsSettings 指标引导配置
type MetricsSettings struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"serviceName"`
	Port        int    `mapstructure:"port"`
	Path        string `mapstructure:"path"`
}

// WatcherSettings 后台任务引导配置
type WatcherSettings struct {
	Enabled            bool `mapstructure:"enabled"`
	DebounceMs         int  `mapstructure:"debounceMs"`
	AutoSaveEnabled    bool `mapstructure:"autoSaveEnabled"`
	AutoSaveIntervalMs int  `mapstructure:"autoSaveIntervalMs"`
}

// LogConfig 转换为 clog 配置
func (s *Settings) LogConfig() *clog.Config {
	return &clog.Config{
		Level:     s.Log.Level,
		Format:    s.Log.Format,
		Output:    s.Log.Output,
		AddSource: s.Log.AddSource,
	}
}

// MetricsConfig 转换为 metrics 配置
func (s *Settings) MetricsConfig() *metrics.Config {
	return &metrics.Config{
		Enabled:     s.Metrics.Enabled,
		ServiceName: s.Metrics.ServiceName,
		Port:        s.Metrics.Port,
		Path:        s.Metrics.Path,
	}
}

// StoreWatcher 转换为 store 的后台任务配置
func (s *Settings) StoreWatcher() store.WatcherSettings {
	return store.WatcherSettings{
		Enabled:            s.Watcher.Enabled,
		DebounceMs:         s.Watcher.DebounceMs,
		AutoSaveEnabled:    s.Watcher.AutoSaveEnabled,
		AutoSaveIntervalMs: s.Watcher.AutoSaveIntervalMs,
	}
}

// New 创建引导配置加载器。
//
// 如果 cfg 为 nil，使用默认配置。
func New(cfg *Config) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return newLoader(cfg), nil
}
