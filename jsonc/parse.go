package jsonc

import (
	"regexp"
	"strings"
)

// propertyPattern 匹配 "key": 形式的属性声明
var propertyPattern = regexp.MustCompile(`"([^"\\]+)"\s*:`)

// Parse 把 JSONC 文本解析为（规范 JSON 文本，注释索引）
//
// 行为：
//   - 剥离 // 行注释和 /* */ 块注释（字符串字面量内的不受影响）
//   - 剥离前，把与属性同行的 // 注释按该属性的点分路径记入索引
//   - 移除 } 和 ] 前的尾随逗号（宽容 JSON）
//
// 剥离后若无有效内容，返回空字符串，由调用方按空文件处理。
func Parse(content string) (string, CommentIndex) {
	comments := make(CommentIndex)

	var out strings.Builder
	tracker := newPathTracker()
	inBlock := false

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		code, comment, blockNext := splitLine(line, inBlock)
		inBlock = blockNext

		if comment != "" {
			// 注释挂到同一行紧邻其前的属性上；独立注释行直接丢弃，
			// 分区注释由 Metadata 在序列化时重建。
			if ms := propertyPattern.FindAllStringSubmatch(code, -1); len(ms) > 0 {
				key := ms[len(ms)-1][1]
				if path := tracker.pathFor(key); path != "" {
					comments[path] = comment
				}
			}
		}

		tracker.advance(code)

		out.WriteString(code)
		if i < len(lines)-1 {
			out.WriteString("\n")
		}
	}

	stripped := removeTrailingCommas(out.String())
	if strings.TrimSpace(stripped) == "" {
		return "", comments
	}
	return stripped, comments
}

// splitLine 去掉一行中的注释，返回（代码部分，行尾注释文本，下一行是否仍在块注释中）
func splitLine(line string, inBlock bool) (code string, comment string, blockNext bool) {
	var b strings.Builder
	inString := false
	escaped := false

	for i := 0; i < len(line); i++ {
		c := line[i]

		if inBlock {
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				inBlock = false
				i++
			}
			continue
		}

		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			// 行注释：行的剩余部分都是注释文本
			return b.String(), strings.TrimSpace(line[i+2:]), false
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			inBlock = true
			i++
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), "", inBlock
}

// removeTrailingCommas 移除 } 和 ] 前的尾随逗号，字符串内的逗号不受影响
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case ',':
			// 向前看下一个非空白字符
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // 丢弃尾随逗号
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// pathTracker 在逐行扫描中维护当前对象嵌套路径
//
// 只跟踪对象键的嵌套，数组层级以空段占位，保证括号配对时出栈不错位。
type pathTracker struct {
	stack []string
}

func newPathTracker() *pathTracker {
	return &pathTracker{}
}

// pathFor 返回给定键在当前嵌套下的点分路径
func (t *pathTracker) pathFor(key string) string {
	parts := make([]string, 0, len(t.stack)+1)
	for _, seg := range t.stack {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	parts = append(parts, key)
	return strings.Join(parts, ".")
}

// advance 按一行代码（已去注释）更新嵌套栈
func (t *pathTracker) advance(code string) {
	inString := false
	escaped := false
	var lastString string
	var pendingKey string
	var cur strings.Builder

	for i := 0; i < len(code); i++ {
		c := code[i]

		if inString {
			if escaped {
				escaped = false
				cur.WriteByte(c)
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
				lastString = cur.String()
				cur.Reset()
			} else {
				cur.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case ':':
			pendingKey = lastString
		case '{':
			t.stack = append(t.stack, pendingKey)
			pendingKey = ""
		case '[':
			t.stack = append(t.stack, "")
			pendingKey = ""
		case '}', ']':
			if len(t.stack) > 0 {
				t.stack = t.stack[:len(t.stack)-1]
			}
		}
	}
}

// ExtractSection 提取 CONFIG_SECTION 与 END_CONFIG_SECTION 标记之间的内容
//
// 起始标记位于头部块注释内，提取从该块注释闭合后的下一行开始；
// 未找到结束标记时取到文件末尾；未找到起始标记时返回 ("", false)。
// 返回的文本仍可能含注释，通常继续交给 Parse 处理。
func ExtractSection(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	start := -1
	headerOpen := false

	for i, line := range lines {
		if start < 0 {
			if headerOpen {
				if strings.Contains(line, "*/") {
					headerOpen = false
					start = i + 1
				}
				continue
			}
			if strings.Contains(line, SectionStartMarker) && !strings.Contains(line, SectionEndMarker) {
				if strings.Contains(line, "*/") || !strings.Contains(line, "/*") {
					start = i + 1
				} else {
					headerOpen = true
				}
			}
			continue
		}
		if strings.Contains(line, SectionEndMarker) {
			return strings.Join(lines[start:i], "\n"), true
		}
	}

	if start < 0 {
		return "", false
	}
	return strings.Join(lines[start:], "\n"), true
}
