package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadOnExternalWrite(t *testing.T) {
	st, path := newTestStore(t, func(cfg *Config[*testConfig]) {
		cfg.Watcher = WatcherSettings{Enabled: true, DebounceMs: 20}
	})

	writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "watched", "numericSetting": 3}`)

	assert.Eventually(t, func() bool {
		return st.Current().TestSetting == "watched"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_SurvivesAtomicRename(t *testing.T) {
	st, path := newTestStore(t, func(cfg *Config[*testConfig]) {
		cfg.Watcher = WatcherSettings{Enabled: true, DebounceMs: 20}
	})

	// 模拟编辑器写入：临时文件 + rename 替换
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(`{"version": "1.0", "configId": "test", "testSetting": "renamed", "numericSetting": 4}`), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	assert.Eventually(t, func() bool {
		return st.Current().TestSetting == "renamed"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_DebounceCollapsesBursts(t *testing.T) {
	st, path := newTestStore(t, func(cfg *Config[*testConfig]) {
		cfg.Watcher = WatcherSettings{Enabled: true, DebounceMs: 100}
	})

	// 突发写入多个中间状态，防抖后只有最终内容被采纳
	for i := 0; i < 5; i++ {
		writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "intermediate", "numericSetting": 0}`)
	}
	writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "final", "numericSetting": 5}`)

	assert.Eventually(t, func() bool {
		return st.Current().TestSetting == "final"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_EnableIsIdempotent(t *testing.T) {
	st, _ := newTestStore(t, nil)

	st.EnableWatcher()
	st.EnableWatcher()
	st.DisableWatcher()
	// 第二次停用是空操作
	st.DisableWatcher()
}

func TestWatcher_DisableStopsReloads(t *testing.T) {
	st, path := newTestStore(t, func(cfg *Config[*testConfig]) {
		cfg.Watcher = WatcherSettings{Enabled: true, DebounceMs: 10}
	})

	st.DisableWatcher()

	writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "unseen", "numericSetting": 6}`)
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, "default", st.Current().TestSetting)
}
