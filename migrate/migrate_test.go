package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile_OldWins(t *testing.T) {
	old := map[string]any{"version": "0.9", "testSetting": "old_value", "numericSetting": 99}
	current := map[string]any{"version": "1.0", "testSetting": "current", "numericSetting": 1}
	def := map[string]any{"version": "1.0", "testSetting": "default", "numericSetting": 42}

	got := Reconcile(old, current, def, "1.0")

	assert.Equal(t, "1.0", got["version"])
	assert.Equal(t, "old_value", got["testSetting"])
	assert.Equal(t, 99, got["numericSetting"])
}

func TestReconcile_FallbackChain(t *testing.T) {
	old := map[string]any{"version": "0.9", "a": "from_old"}
	current := map[string]any{"version": "1.0", "a": "from_current", "b": "from_current"}
	def := map[string]any{"version": "1.0", "a": "from_default", "b": "from_default", "c": "from_default"}

	got := Reconcile(old, current, def, "1.0")

	// old 有则 old 胜，其次 current，最后 default
	assert.Equal(t, "from_old", got["a"])
	assert.Equal(t, "from_current", got["b"])
	assert.Equal(t, "from_default", got["c"])
}

func TestReconcile_NewSchemaKeySuppliedByDefault(t *testing.T) {
	old := map[string]any{"version": "0.9", "legacy": true}
	current := map[string]any{"version": "1.0"}
	def := map[string]any{"version": "1.0", "introduced": "fresh"}

	got := Reconcile(old, current, def, "1.0")

	assert.Equal(t, true, got["legacy"])
	assert.Equal(t, "fresh", got["introduced"])
}

func TestReconcile_VersionNeverCarriedFromOld(t *testing.T) {
	old := map[string]any{"version": "0.1"}
	current := map[string]any{"version": "0.5"}
	def := map[string]any{"version": "1.0"}

	got := Reconcile(old, current, def, "1.0")
	assert.Equal(t, "1.0", got["version"])
}

func TestReconcile_ShallowNestedObjects(t *testing.T) {
	old := map[string]any{
		"version": "0.9",
		"server":  map[string]any{"host": "custom"},
	}
	current := map[string]any{"version": "1.0"}
	def := map[string]any{
		"version": "1.0",
		"server":  map[string]any{"host": "localhost", "port": 8080},
	}

	got := Reconcile(old, current, def, "1.0")

	// 顶层整体取胜方：old 的子对象覆盖默认值，默认新增的 port 不被补入
	assert.Equal(t, map[string]any{"host": "custom"}, got["server"])
}

func TestReconcile_InputsUntouched(t *testing.T) {
	old := map[string]any{"version": "0.9", "k": "old"}
	def := map[string]any{"version": "1.0", "k": "default"}

	_ = Reconcile(old, map[string]any{}, def, "1.0")

	assert.Equal(t, "0.9", old["version"])
	assert.Equal(t, "default", def["k"])
}
