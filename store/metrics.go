package store

// 指标常量定义
const (
	// MetricReloadTotal 重载总次数 (Counter)
	MetricReloadTotal = "confkeep_reload_total"

	// MetricSelfHealTotal 自愈链触发次数 (Counter)
	MetricSelfHealTotal = "confkeep_selfheal_total"

	// MetricAutoSaveTotal 自动保存落盘次数 (Counter)
	MetricAutoSaveTotal = "confkeep_autosave_total"

	// LabelResult 操作结果标签 (ok/migrated/skipped/healed)
	LabelResult = "result"

	// LabelReason 失败原因标签 (empty_file/parse_error/json_error/reload_error)
	LabelReason = "reason"

	// LabelStage 自愈链命中阶段标签 (backup/last_valid/default)
	LabelStage = "stage"
)
