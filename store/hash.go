package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashOf 返回值的规范序列化形式的内容哈希
//
// 结构体字段按声明顺序序列化，哈希因此是确定性的；用它做变更检测
// 避免了对反射式深比较的依赖。
func hashOf(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
