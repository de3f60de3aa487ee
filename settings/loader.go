package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/confkeep/store"
	"github.com/ceyewan/confkeep/xerrors"
)

// loader 实现 Loader 接口
type loader struct {
	v   *viper.Viper
	cfg *Config
}

func newLoader(cfg *Config) *loader {
	return &loader{
		v:   viper.New(),
		cfg: cfg,
	}
}

// Load 初始化并从所有来源加载配置
func (l *loader) Load(_ context.Context) error {
	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, path := range l.cfg.Paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先级最高，先挂上确保全部可见
	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	// .env 文件注入进程环境，之后由 AutomaticEnv 捕获
	l.loadDotEnv()

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return xerrors.Wrapf(err, "settings: read config %q", l.cfg.Name)
		}
		// 找不到基础配置文件不是错误，默认值 + 环境变量也能跑
	}

	if err := l.mergeEnvironmentConfig(); err != nil {
		return err
	}

	return nil
}

// loadDotEnv 尝试从各搜索路径加载 .env 文件，加载失败全部忽略
func (l *loader) loadDotEnv() {
	_ = godotenv.Load()
	for _, path := range l.cfg.Paths {
		_ = godotenv.Load(filepath.Join(path, ".env"))
	}
}

// mergeEnvironmentConfig 合并环境特定配置文件（如 confkeep.production.yaml）
//
// 环境名来自 {EnvPrefix}_ENV 环境变量，未设置时跳过。
func (l *loader) mergeEnvironmentConfig() error {
	env := os.Getenv(fmt.Sprintf("%s_ENV", l.cfg.EnvPrefix))
	if env == "" {
		return nil
	}

	name := fmt.Sprintf("%s.%s", l.cfg.Name, env)
	l.v.SetConfigName(name)
	defer l.v.SetConfigName(l.cfg.Name)

	if err := l.v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return xerrors.Wrapf(err, "settings: merge environment config %q", name)
		}
	}
	return nil
}

// Get 根据 key 获取配置值
func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

// Unmarshal 将整个配置反序列化到结构体
func (l *loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

// UnmarshalKey 将特定配置 key 反序列化到结构体
func (l *loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

// Engine 反序列化并返回引擎引导配置
func (l *loader) Engine() (*Settings, error) {
	s := &Settings{}
	if err := l.v.Unmarshal(s); err != nil {
		return nil, xerrors.Wrap(err, "settings: unmarshal engine settings")
	}

	if s.ConfigDir == "" {
		s.ConfigDir = filepath.Join(".", "data", "config")
	}
	if s.Ext == "" {
		s.Ext = "jsonc"
	}
	// 部署层默认防抖：引擎自身把 0 当作字面不防抖，
	// 引导配置未写 debounceMs 时在这里补上编辑器突发写入的缓冲
	if s.Watcher.Enabled && s.Watcher.DebounceMs == 0 {
		s.Watcher.DebounceMs = store.DefaultDebounceMs
	}
	return s, nil
}
