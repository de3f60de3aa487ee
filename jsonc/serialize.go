package jsonc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ceyewan/confkeep/xerrors"
)

const indentUnit = "  "

// Serialize 把配置对象输出为带注释的 JSONC 文本
//
// 输出顺序：头部注释块（说明行、可选版本行、可选更新时间行）、
// 按声明字段顺序重建的 JSON 对象、尾部注释块（说明行、结束标记）。
//
// 对象每一层的每个键：先输出 Metadata.SectionComments 中的分区注释
// （按点分路径匹配），再输出 comments 中回写的注释，最后输出键值对。
// 数组每个元素占一行，空数组输出 []。
func Serialize(cfg any, meta Metadata, comments CommentIndex) (string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", xerrors.Wrap(err, "marshal config")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var b strings.Builder
	writeHeader(&b, meta)

	if err := writeValue(dec, &b, nil, 0, meta, comments); err != nil {
		return "", xerrors.Wrap(err, "serialize config")
	}
	b.WriteString("\n")

	writeFooter(&b, meta)
	return b.String(), nil
}

// writeHeader 输出头部注释块
func writeHeader(b *strings.Builder, meta Metadata) {
	b.WriteString("/* " + SectionStartMarker + "\n")
	for _, line := range meta.HeaderLines {
		b.WriteString(" * " + line + "\n")
	}
	if meta.IncludeVersion {
		b.WriteString(" * Version: " + meta.Version + "\n")
	}
	if meta.IncludeUpdatedAt {
		b.WriteString(" * Last updated: " + time.Now().Format("2006-01-02T15:04:05Z07:00") + "\n")
	}
	b.WriteString(" */\n")
}

// writeFooter 输出尾部注释块
func writeFooter(b *strings.Builder, meta Metadata) {
	b.WriteString("/*\n")
	for _, line := range meta.FooterLines {
		b.WriteString(" * " + line + "\n")
	}
	b.WriteString(" * " + SectionEndMarker + "\n")
	b.WriteString(" */\n")
}

// writeValue 从解码器中消费一个值并带缩进输出
//
// json.Marshal 按结构体声明顺序输出字段，逐 token 重放即保持确定性顺序。
func writeValue(dec *json.Decoder, b *strings.Builder, path []string, depth int, meta Metadata, comments CommentIndex) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return writeObject(dec, b, path, depth, meta, comments)
		case '[':
			return writeArray(dec, b, path, depth, meta, comments)
		default:
			return fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return writeScalar(b, t)
	case json.Number:
		b.WriteString(t.String())
		return nil
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
		return nil
	case nil:
		b.WriteString("null")
		return nil
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
}

// writeObject 输出一个对象（起始 { 已被消费）
func writeObject(dec *json.Decoder, b *strings.Builder, path []string, depth int, meta Metadata, comments CommentIndex) error {
	if !dec.More() {
		if _, err := dec.Token(); err != nil {
			return err
		}
		b.WriteString("{}")
		return nil
	}

	b.WriteString("{\n")
	inner := strings.Repeat(indentUnit, depth+1)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}

		childPath := append(path[:len(path):len(path)], key)
		dotted := strings.Join(childPath, ".")

		if section, ok := meta.SectionComments[dotted]; ok {
			for _, line := range strings.Split(section, "\n") {
				b.WriteString(inner + "// " + line + "\n")
			}
		}
		if carried, ok := comments[dotted]; ok {
			b.WriteString(inner + "// " + carried + "\n")
		}

		b.WriteString(inner)
		if err := writeScalar(b, key); err != nil {
			return err
		}
		b.WriteString(": ")
		if err := writeValue(dec, b, childPath, depth+1, meta, comments); err != nil {
			return err
		}
		if dec.More() {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	if _, err := dec.Token(); err != nil { // 消费 }
		return err
	}
	b.WriteString(strings.Repeat(indentUnit, depth) + "}")
	return nil
}

// writeArray 输出一个数组（起始 [ 已被消费），每个元素占一行
func writeArray(dec *json.Decoder, b *strings.Builder, path []string, depth int, meta Metadata, comments CommentIndex) error {
	if !dec.More() {
		if _, err := dec.Token(); err != nil {
			return err
		}
		b.WriteString("[]")
		return nil
	}

	b.WriteString("[\n")
	inner := strings.Repeat(indentUnit, depth+1)

	for dec.More() {
		b.WriteString(inner)
		if err := writeValue(dec, b, path, depth+1, meta, comments); err != nil {
			return err
		}
		if dec.More() {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	if _, err := dec.Token(); err != nil { // 消费 ]
		return err
	}
	b.WriteString(strings.Repeat(indentUnit, depth) + "]")
	return nil
}

// writeScalar 按 JSON 转义规则输出字符串
func writeScalar(b *strings.Builder, s string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	b.Write(raw)
	return nil
}
