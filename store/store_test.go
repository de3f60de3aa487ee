package store

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/confkeep/jsonc"
)

// testConfig 测试用负载，对应一个最小的应用配置 schema
type testConfig struct {
	Ver            string `json:"version"`
	ID             string `json:"configId"`
	TestSetting    string `json:"testSetting"`
	NumericSetting int    `json:"numericSetting"`
}

func (c *testConfig) Version() string       { return c.Ver }
func (c *testConfig) SetVersion(v string)   { c.Ver = v }
func (c *testConfig) ConfigID() string      { return c.ID }
func (c *testConfig) Clone() Payload        { dup := *c; return &dup }

func defaultTestConfig() *testConfig {
	return &testConfig{
		Ver:            "1.0",
		ID:             "test",
		TestSetting:    "default",
		NumericSetting: 42,
	}
}

// newTestStore 创建指向临时目录的存储（测试辅助函数）
func newTestStore(t *testing.T, mutate func(*Config[*testConfig])) (Store[*testConfig], string) {
	t.Helper()

	dir := t.TempDir()
	cfg := &Config[*testConfig]{
		Version:   "1.0",
		ConfigDir: dir,
		Default:   defaultTestConfig(),
		Metadata: jsonc.Metadata{
			HeaderLines:    []string{"Test configuration"},
			IncludeVersion: true,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	st, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(st.Cleanup)

	return st, filepath.Join(dir, "test", "config.jsonc")
}

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config[*testConfig]
	}{
		{"nil config", nil},
		{"missing version", &Config[*testConfig]{ConfigDir: "/tmp", Default: defaultTestConfig()}},
		{"missing dir", &Config[*testConfig]{Version: "1.0", Default: defaultTestConfig()}},
		{"nil default", &Config[*testConfig]{Version: "1.0", ConfigDir: "/tmp"}},
		{"missing configId", &Config[*testConfig]{Version: "1.0", ConfigDir: "/tmp", Default: &testConfig{Ver: "1.0"}}},
		{"negative debounce", &Config[*testConfig]{
			Version: "1.0", ConfigDir: "/tmp", Default: defaultTestConfig(),
			Watcher: WatcherSettings{DebounceMs: -1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfig_ZeroDebounceIsLiteral(t *testing.T) {
	cfg := &Config[*testConfig]{
		Version:   "1.0",
		ConfigDir: t.TempDir(),
		Default:   defaultTestConfig(),
		Watcher:   WatcherSettings{Enabled: true, DebounceMs: 0},
	}
	require.NoError(t, cfg.validate())

	// 0 表示不防抖，不会被悄悄换成默认值
	assert.Equal(t, 0, cfg.Watcher.DebounceMs)
}

func TestNew_WritesDefaultFile(t *testing.T) {
	_, path := newTestStore(t, nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, jsonc.SectionStartMarker)
	assert.Contains(t, content, jsonc.SectionEndMarker)
	assert.Contains(t, content, `"testSetting": "default"`)
	assert.Contains(t, content, `"numericSetting": 42`)
}

func TestCurrent_NeverNil(t *testing.T) {
	st, _ := newTestStore(t, nil)
	require.NotNil(t, st.Current())
	assert.Equal(t, "1.0", st.Current().Version())
}

func TestReload_PicksUpExternalEdits(t *testing.T) {
	st, path := newTestStore(t, nil)

	writeConfigFile(t, path, `{
  "version": "1.0",
  "configId": "test",
  // user tuned this
  "testSetting": "modified",
  "numericSetting": 100,
}`)
	st.Reload()

	got := st.Current()
	assert.Equal(t, "modified", got.TestSetting)
	assert.Equal(t, 100, got.NumericSetting)
}

func TestReload_IdempotentWithoutFileChange(t *testing.T) {
	st, path := newTestStore(t, nil)

	writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "once", "numericSetting": 1}`)
	st.Reload()
	first := st.Current()

	// 文件未变化：第二次重载是空操作，不产生新的解析结果
	st.Reload()
	assert.Same(t, first, st.Current())
}

func TestReload_MissingFileRewritesDefaults(t *testing.T) {
	st, path := newTestStore(t, nil)

	require.NoError(t, os.Remove(path))
	st.Reload()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"testSetting": "default"`)
}

func TestSelfHeal_CorruptJSON(t *testing.T) {
	st, path := newTestStore(t, nil)

	writeConfigFile(t, path, "{ invalid json }")
	st.Reload()

	// 自愈到编译期默认值
	assert.Equal(t, "default", st.Current().TestSetting)
	assert.Equal(t, 42, st.Current().NumericSetting)

	// 坏文件以 json_error 原因留底
	backupDir := filepath.Join(filepath.Dir(path), "backups")
	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), ReasonJSONError) {
			found = true
		}
	}
	assert.True(t, found, "expected a json_error backup")

	// 文件被有效内容覆盖，后续重载恢复正常
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"testSetting": "default"`)
}

func TestSelfHeal_EmptyFile(t *testing.T) {
	st, path := newTestStore(t, nil)

	writeConfigFile(t, path, "// only a comment, nothing else\n")
	st.Reload()

	assert.Equal(t, "default", st.Current().TestSetting)

	backupDir := filepath.Join(filepath.Dir(path), "backups")
	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), ReasonEmptyFile) {
			found = true
		}
	}
	assert.True(t, found, "expected an empty_file backup")
}

func TestSelfHeal_PrefersLastValidOverDefault(t *testing.T) {
	st, path := newTestStore(t, nil)

	writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "customized", "numericSetting": 7}`)
	st.Reload()
	require.Equal(t, "customized", st.Current().TestSetting)

	writeConfigFile(t, path, "{ broken")
	st.Reload()

	// 损坏的快照是最新的（恢复失败），回退到最后一次有效值而不是默认值
	assert.Equal(t, "customized", st.Current().TestSetting)
	assert.Equal(t, 7, st.Current().NumericSetting)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"testSetting": "customized"`)
}

func TestSelfHeal_DiscardsStaleComments(t *testing.T) {
	st, path := newTestStore(t, nil)

	writeConfigFile(t, path, `{
  "version": "1.0",
  "configId": "test",
  "testSetting": "tuned", // hand picked
  "numericSetting": 7,
}`)
	st.Reload()
	require.Equal(t, "tuned", st.Current().TestSetting)

	writeConfigFile(t, path, "{ broken")
	st.Reload()

	// 自愈重写的文件不再携带损坏前文件的字段注释
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hand picked")
	assert.Contains(t, string(data), `"testSetting": "tuned"`)
}

func TestSelfHeal_NoBackupDirectory(t *testing.T) {
	st, path := newTestStore(t, nil)

	require.NoError(t, os.RemoveAll(filepath.Join(filepath.Dir(path), "backups")))

	writeConfigFile(t, path, "not json at all")
	st.Reload()

	// 没有快照可用时仍然不崩溃，兜底到默认值
	assert.Equal(t, "default", st.Current().TestSetting)
}

func TestMigration_PreservesOldValues(t *testing.T) {
	st, path := newTestStore(t, nil)

	writeConfigFile(t, path, `{"version": "0.9", "configId": "test", "testSetting": "old_value", "numericSetting": 99}`)
	st.Reload()

	got := st.Current()
	assert.Equal(t, "1.0", got.Version())
	assert.Equal(t, "old_value", got.TestSetting)
	assert.Equal(t, 99, got.NumericSetting)

	// 迁移前留底
	backupDir := filepath.Join(filepath.Dir(path), "backups")
	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), ReasonPreMigration) {
			found = true
		}
	}
	assert.True(t, found, "expected a pre_migration backup")

	// 迁移结果立即落盘
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.0"`)
	assert.Contains(t, string(data), `"testSetting": "old_value"`)
}

func TestMigration_CurrentWinsForKeysAbsentFromOldFile(t *testing.T) {
	st, path := newTestStore(t, nil)

	writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "customized", "numericSetting": 7}`)
	st.Reload()
	require.Equal(t, "customized", st.Current().TestSetting)

	// 旧版本文件没写 testSetting：该键应由内存值接住，而不是回落到默认值
	writeConfigFile(t, path, `{"version": "0.9", "configId": "test", "numericSetting": 99}`)
	st.Reload()

	got := st.Current()
	assert.Equal(t, "1.0", got.Version())
	assert.Equal(t, "customized", got.TestSetting)
	assert.Equal(t, 99, got.NumericSetting)
}

func TestSave(t *testing.T) {
	st, path := newTestStore(t, nil)

	modified := defaultTestConfig()
	modified.TestSetting = "saved"
	st.Save(modified)

	assert.Equal(t, "saved", st.Current().TestSetting)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"testSetting": "saved"`)
}

func TestSave_ThenReloadIsNoop(t *testing.T) {
	st, _ := newTestStore(t, nil)

	modified := defaultTestConfig()
	modified.TestSetting = "saved"
	st.Save(modified)

	// 保存更新了指纹，随后的重载不会覆盖内存值
	st.Reload()
	assert.Same(t, modified, st.Current())
}

func TestUpdate(t *testing.T) {
	st, _ := newTestStore(t, nil)

	st.Update(func(c *testConfig) {
		c.TestSetting = "mutated"
	})
	assert.Equal(t, "mutated", st.Current().TestSetting)
}

func TestSubscribe(t *testing.T) {
	st, path := newTestStore(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := st.Subscribe(ctx)

	writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "event", "numericSetting": 5}`)
	st.Reload()

	select {
	case ev := <-events:
		assert.Equal(t, SourceReload, ev.Source)
		assert.Equal(t, "event", ev.Config.TestSetting)
	case <-time.After(time.Second):
		t.Fatal("expected a commit event")
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	st, _ := newTestStore(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	events := st.Subscribe(ctx)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, open := <-events:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestCleanup(t *testing.T) {
	st, path := newTestStore(t, func(cfg *Config[*testConfig]) {
		cfg.Watcher = WatcherSettings{Enabled: true, AutoSaveEnabled: true, AutoSaveIntervalMs: 50}
	})

	events := st.Subscribe(context.Background())
	st.Cleanup()

	// 订阅通道被关闭
	_, open := <-events
	assert.False(t, open)

	// 关闭后的操作是安全的空操作
	st.Reload()
	st.EnableWatcher()
	st.EnableAutoSave()
	before := st.Current()
	writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "ignored", "numericSetting": 0}`)
	st.Reload()
	assert.Same(t, before, st.Current())
}

func TestCleanup_ReleasesSubscriberGoroutines(t *testing.T) {
	st, _ := newTestStore(t, nil)

	base := runtime.NumGoroutine()
	// 不可取消的 context：订阅者的回收只能靠 Cleanup
	for i := 0; i < 8; i++ {
		st.Subscribe(context.Background())
	}
	st.Cleanup()

	// 在测试 goroutine 内轮询：Eventually 的条件跑在它自己起的
	// goroutine 里，计数永远包含那个额外的 goroutine，无法回到基线
	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > base {
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), base)
}

func TestBackupRetention_Bounded(t *testing.T) {
	st, path := newTestStore(t, nil)

	// 反复触发快照事件，目录内快照数始终不超过上限
	for i := 0; i < 8; i++ {
		writeConfigFile(t, path, "{ broken again")
		st.Reload()
		writeConfigFile(t, path, `{"version": "1.0", "configId": "test", "testSetting": "ok", "numericSetting": 1}`)
		st.Reload()
	}

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(path), "backups"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 50)
}
