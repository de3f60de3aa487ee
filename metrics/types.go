// Package metrics 提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，提供简洁的 Counter、Gauge、Histogram 接口，
// 内置 Prometheus HTTP 暴露端点。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "confkeep",
//	    Version:     "v1.0.0",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("confkeep_reload_total", "配置重载总次数")
//	counter.Inc(ctx, metrics.L("result", "ok"))
package metrics

import "context"

// Counter 计数器接口，用于记录只增不减的累计值
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值（负数会被监控系统忽略或报错）
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口，用于记录可任意增减的瞬时值
type Gauge interface {
	// Set 将 gauge 设置为给定的值，覆盖之前的值
	Set(ctx context.Context, val float64, labels ...Label)
}

// Histogram 直方图接口，用于记录值的分布情况
type Histogram interface {
	// Record 在直方图中记录一个值
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂接口
//
// 一个 Meter 实例通常对应一个服务；创建出的指标是线程安全的。
type Meter interface {
	// Counter 创建计数器实例，name 应符合 Prometheus 命名规范
	Counter(name string, desc string) (Counter, error)

	// Gauge 创建仪表盘实例
	Gauge(name string, desc string) (Gauge, error)

	// Histogram 创建直方图实例
	Histogram(name string, desc string) (Histogram, error)

	// Shutdown 关闭 Meter，刷新所有指标，通常在进程退出时调用
	Shutdown(ctx context.Context) error
}

// Label 指标标签
type Label struct {
	Key   string
	Value string
}

// L 创建标签的简写
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
