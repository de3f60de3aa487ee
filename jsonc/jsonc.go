// Package jsonc 提供带注释 JSON（JSONC）的解析与序列化能力。
//
// 解析方向：剥离 // 行注释和 /* */ 块注释，容忍闭合括号前的尾随逗号，
// 并把每个属性行尾的单行注释按点分路径（如 "section.field"）收集为
// CommentIndex，供序列化时回写。
//
// 序列化方向：把类型化配置对象按声明字段顺序输出为 2 空格缩进的 JSONC
// 文本，附带头部注释块、分区注释、回写注释和尾部注释块，输出是确定性的，
// 便于 diff 和测试。
//
// 基本使用：
//
//	payload, comments := jsonc.Parse(raw)
//	if payload == "" {
//	    // 文件为空或只剩注释
//	}
//
//	out, err := jsonc.Serialize(cfg, jsonc.Metadata{
//	    HeaderLines:    []string{"Application configuration"},
//	    IncludeVersion: true,
//	    Version:        "1.0",
//	}, comments)
package jsonc

// CommentIndex 点分属性路径到行尾注释的映射
//
// 在每次成功解析时重建，在每次序列化时回写。它只是尽力而为的注释层，
// 不会对照 schema 做校验。
type CommentIndex map[string]string

// Metadata 序列化的格式化配置
//
// 由调用方在构造时提供一次，引擎生命周期内不变。
type Metadata struct {
	// HeaderLines 头部注释块中的说明行
	HeaderLines []string
	// FooterLines 尾部注释块中的说明行
	FooterLines []string
	// SectionComments 点分属性路径到分区说明注释的映射
	SectionComments map[string]string
	// IncludeVersion 是否在头部输出 "Version: <x>" 行
	IncludeVersion bool
	// IncludeUpdatedAt 是否在头部输出 "Last updated: <时间戳>" 行
	IncludeUpdatedAt bool
	// Version 头部版本行使用的 schema 版本号
	Version string
}

// 配置分区标记。ExtractSection 按这两个标记定位机器可读部分。
const (
	SectionStartMarker = "CONFIG_SECTION"
	SectionEndMarker   = "END_CONFIG_SECTION"
)
