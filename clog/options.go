package clog

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	namespaceParts []string
}

// applyOptions 应用选项列表（内部使用）
func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithNamespace 设置初始命名空间
//
// 示例：
//
//	logger, _ := clog.New(cfg, clog.WithNamespace("confkeep", "store"))
//	// 日志中包含 namespace="confkeep.store"
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}
