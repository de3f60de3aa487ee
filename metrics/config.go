package metrics

// Config 指标配置
type Config struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`         // 关闭时 New 返回 noop 实现
	ServiceName string `json:"serviceName" yaml:"serviceName"` // 服务名，写入 resource 属性
	Version     string `json:"version" yaml:"version"`         // 服务版本
	Port        int    `json:"port" yaml:"port"`               // Prometheus 端点端口，0 表示不启动 HTTP 服务
	Path        string `json:"path" yaml:"path"`               // Prometheus 端点路径，如 "/metrics"
}
