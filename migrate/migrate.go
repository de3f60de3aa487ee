// Package migrate 提供 schema 版本迁移的三方调和算法。
//
// 当磁盘配置的 version 与编译期当前版本不一致时，store 将磁盘值（old）、
// 内存值（current）和编译期默认值（default）交给 Reconcile：任一顶层键，
// old 有则取 old，其次取 current，最后取 default（默认值同时补齐新
// schema 引入而 old 没有的键），结果的 version 强制为当前版本。
//
// 合并有意保持浅层：嵌套对象按顶层键整体取胜方的值，不做逐字段深合并。
// 默认值的子对象在新版本中新增嵌套字段时，old 的子对象会整体覆盖它，
// 这是与来源一致的既定行为，调用方如需深合并应在自己的 schema 层处理。
package migrate

// VersionKey 配置负载中 schema 版本字段的键名
const VersionKey = "version"

// Reconcile 三方调和，等价于 merge(merge(old, current), default)
//
// 返回新 map，入参不被修改。
func Reconcile(old, current, def map[string]any, version string) map[string]any {
	return merge(merge(old, current, version), def, version)
}

// merge 以 B 的结构为底，用 A 的非 version 顶层键覆盖，最后强制 version
//
// 直觉上：两边都有的键，A 的值获胜。
func merge(a, b map[string]any, version string) map[string]any {
	out := make(map[string]any, len(b)+len(a))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range a {
		if k == VersionKey {
			continue
		}
		out[k] = v
	}
	out[VersionKey] = version
	return out
}
