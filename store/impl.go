package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ceyewan/confkeep/backup"
	"github.com/ceyewan/confkeep/clog"
	"github.com/ceyewan/confkeep/jsonc"
	"github.com/ceyewan/confkeep/metrics"
	"github.com/ceyewan/confkeep/migrate"
	"github.com/ceyewan/confkeep/xerrors"
)

// store 实现 Store 接口（非导出）
//
// mu 保护 current、lastValid、comments、lastSavedHash 和文件指纹：
// 所有读-改-写序列（重载、保存、迁移、自愈）都在 mu 内串行执行，
// 关闭了监听触发的重载与应用触发的保存之间的竞争。
type store[T Payload] struct {
	cfg    *Config[T]
	logger clog.Logger
	meter  metrics.Meter

	filePath string
	backups  backup.Store

	mu            sync.RWMutex
	current       T
	lastValid     T
	comments      jsonc.CommentIndex
	lastSavedHash string
	lastModTime   time.Time
	lastSize      int64

	taskMu    sync.Mutex
	watcher   *task
	autosaver *task
	closed    atomic.Bool
	closedCh  chan struct{}

	subMu sync.RWMutex
	subs  []chan Event[T]

	reloadTotal   metrics.Counter
	selfHealTotal metrics.Counter
	autoSaveTotal metrics.Counter
}

// task 一个可协作取消的后台任务句柄
type task struct {
	stopCh chan struct{}
	doneCh chan struct{}
}

func newStore[T Payload](cfg *Config[T], options *options) (Store[T], error) {
	configID := cfg.Default.ConfigID()
	dir := filepath.Join(cfg.ConfigDir, configID)
	filePath := filepath.Join(dir, "config."+cfg.Ext)

	logger := options.logger.WithNamespace("store").With(clog.String("config_id", configID))

	backups, err := backup.New(&backup.Config{
		ConfigID: configID,
		FilePath: filePath,
		Dir:      filepath.Join(dir, "backups"),
		Ext:      cfg.Ext,
	}, backup.WithLogger(options.logger), backup.WithMeter(options.meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "store: create backup store")
	}

	s := &store[T]{
		cfg:       cfg,
		logger:    logger,
		meter:     options.meter,
		filePath:  filePath,
		backups:   backups,
		current:   cloneAs[T](cfg.Default),
		lastValid: cloneAs[T](cfg.Default),
		comments:  make(jsonc.CommentIndex),
		closedCh:  make(chan struct{}),
	}

	s.reloadTotal, _ = s.meter.Counter(MetricReloadTotal, "配置重载总次数")
	s.selfHealTotal, _ = s.meter.Counter(MetricSelfHealTotal, "自愈链触发次数")
	s.autoSaveTotal, _ = s.meter.Counter(MetricAutoSaveTotal, "自动保存落盘次数")

	s.Reload()

	if cfg.Watcher.Enabled {
		s.EnableWatcher()
	}
	if cfg.Watcher.AutoSaveEnabled {
		s.EnableAutoSave()
	}

	return s, nil
}

// cloneAs 深拷贝负载并还原具体类型
func cloneAs[T Payload](p Payload) T {
	return p.Clone().(T)
}

// Current 返回当前配置值
func (s *store[T]) Current() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload 从磁盘重载配置
func (s *store[T]) Reload() {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()
}

// ReloadManually 是 Reload 的别名
func (s *store[T]) ReloadManually() {
	s.Reload()
}

func (s *store[T]) reloadLocked() {
	info, err := os.Stat(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("config file missing, writing defaults",
				clog.String("path", s.filePath))
			s.persistLocked(cloneAs[T](s.cfg.Default), nil)
			return
		}
		s.selfHealLocked(ReasonReloadError, xerrors.Wrap(err, ErrReload.Error()))
		return
	}

	// 指纹未变化时跳过，避免重复解析
	if info.ModTime().Equal(s.lastModTime) && info.Size() == s.lastSize {
		s.logger.Debug("config fingerprint unchanged, skipping reload")
		s.reloadTotal.Inc(context.Background(), metrics.L(LabelResult, "skipped"))
		return
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		s.selfHealLocked(ReasonReloadError, xerrors.Wrap(err, ErrReload.Error()))
		return
	}

	payload, comments := jsonc.Parse(string(data))
	if payload == "" {
		s.selfHealLocked(ReasonEmptyFile, ErrEmptyFile)
		return
	}

	parsed := cloneAs[T](s.cfg.Default)
	if err := json.Unmarshal([]byte(payload), parsed); err != nil {
		var syntaxErr *json.SyntaxError
		if xerrors.As(err, &syntaxErr) {
			s.selfHealLocked(ReasonJSONError, xerrors.Wrap(err, ErrJSONSyntax.Error()))
		} else {
			s.selfHealLocked(ReasonParseError, xerrors.Wrap(err, ErrParse.Error()))
		}
		return
	}

	if parsed.Version() != s.cfg.Version {
		s.migrateLocked(parsed, payload, comments)
		return
	}

	s.comments = comments
	s.current = parsed
	s.lastValid = cloneAs[T](parsed)
	s.lastSavedHash = hashOf(parsed)
	s.lastModTime, s.lastSize = info.ModTime(), info.Size()

	s.logger.Info("config reloaded",
		clog.String("version", parsed.Version()),
		clog.Int64("size", info.Size()))
	s.reloadTotal.Inc(context.Background(), metrics.L(LabelResult, "ok"))
	s.notify(SourceReload, parsed)
}

// migrateLocked 处理磁盘版本与当前版本不一致的情况
//
// 先给当前文件留底，再做浅层三方调和，结果立即落盘。
// old 侧的键集合直接取自剥离注释后的文件文本：旧文件没写的键必须
// 在调和中真正缺席，才能让内存值而不是默认值接住它们。
func (s *store[T]) migrateLocked(old T, payload string, comments jsonc.CommentIndex) {
	s.logger.Warn("schema version mismatch, migrating",
		clog.String("disk_version", old.Version()),
		clog.String("current_version", s.cfg.Version))

	s.backups.Snapshot(ReasonPreMigration)

	var oldMap map[string]any
	err1 := json.Unmarshal([]byte(payload), &oldMap)
	curMap, err2 := toMap(s.current)
	defMap, err3 := toMap(s.cfg.Default)
	if err := xerrors.Combine(err1, err2, err3); err != nil {
		s.selfHealLocked(ReasonReloadError, xerrors.Wrap(err, "migration map conversion"))
		return
	}

	merged := migrate.Reconcile(oldMap, curMap, defMap, s.cfg.Version)

	migrated := cloneAs[T](s.cfg.Default)
	if err := fromMap(merged, migrated); err != nil {
		s.selfHealLocked(ReasonReloadError, xerrors.Wrap(err, "migration result conversion"))
		return
	}
	migrated.SetVersion(s.cfg.Version)

	s.comments = comments
	s.current = migrated
	s.lastValid = cloneAs[T](migrated)
	s.persistLocked(migrated, comments)

	s.logger.Info("config migrated",
		clog.String("from", old.Version()),
		clog.String("to", s.cfg.Version))
	s.reloadTotal.Inc(context.Background(), metrics.L(LabelResult, "migrated"))
	s.notify(SourceMigration, migrated)
}

// selfHealLocked 自愈链：快照留底 -> 最近有效快照 -> 最后有效值 -> 默认值
//
// 三级兜底必有一级成功（默认值总是有效），因此重载永远不会让引擎
// 失去可用的当前配置。
func (s *store[T]) selfHealLocked(reason string, cause error) {
	s.logger.Error("config reload failed, entering self-heal",
		clog.String("reason", reason),
		clog.Error(cause))
	s.reloadTotal.Inc(context.Background(),
		metrics.L(LabelResult, "healed"), metrics.L(LabelReason, reason))

	s.backups.Snapshot(reason)

	if payload, ok := s.backups.RestoreLatestValid(); ok {
		restored := cloneAs[T](s.cfg.Default)
		if err := json.Unmarshal([]byte(payload), restored); err == nil {
			restored.SetVersion(s.cfg.Version)
			s.adoptLocked(restored, "backup")
			return
		}
	}

	if hashOf(s.lastValid) != hashOf(s.cfg.Default) {
		s.adoptLocked(cloneAs[T](s.lastValid), "last_valid")
		return
	}

	s.adoptLocked(cloneAs[T](s.cfg.Default), "default")
}

// adoptLocked 采纳自愈结果为当前值并立即落盘
//
// 注释索引来自上一次成功解析的、现已损坏的文件，对采纳的配置
// （快照/最后有效值/默认值）未必成立，一并丢弃；Metadata 的
// 头尾与分区注释不受影响。
func (s *store[T]) adoptLocked(cfg T, stage string) {
	s.current = cfg
	s.lastValid = cloneAs[T](cfg)
	s.comments = make(jsonc.CommentIndex)
	s.persistLocked(cfg, nil)

	s.logger.Warn("self-heal adopted config", clog.String("stage", stage))
	s.selfHealTotal.Inc(context.Background(), metrics.L(LabelStage, stage))
	s.notify(SourceSelfHeal, cfg)
}

// Save 序列化并覆盖配置文件，cfg 成为当前值
func (s *store[T]) Save(cfg T) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = cfg
	s.persistLocked(cfg, s.comments)
}

// Update 在存储锁内原地修改当前值
func (s *store[T]) Update(mutate func(T)) {
	if s.closed.Load() || mutate == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(s.current)
}

// persistLocked 原子写出配置文件并更新哈希与指纹
//
// 写盘失败只记日志（内存配置是权威），指纹保持旧值，
// 下次重载会重新读到磁盘上的真实内容。
func (s *store[T]) persistLocked(cfg T, comments jsonc.CommentIndex) {
	text, err := jsonc.Serialize(cfg, s.cfg.Metadata, comments)
	if err != nil {
		s.logger.Error("config serialize failed",
			clog.Error(xerrors.Wrap(err, ErrSave.Error())))
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		s.logger.Error("config dir create failed",
			clog.Error(xerrors.Wrap(err, ErrSave.Error())))
		return
	}

	// renameio：临时文件 + fsync + 原子 rename，掉电不留半成品
	if err := renameio.WriteFile(s.filePath, []byte(text), 0o644); err != nil {
		s.logger.Error("config write failed",
			clog.String("path", s.filePath),
			clog.Error(xerrors.Wrap(err, ErrSave.Error())))
		return
	}

	s.lastSavedHash = hashOf(cfg)
	if info, err := os.Stat(s.filePath); err == nil {
		s.lastModTime, s.lastSize = info.ModTime(), info.Size()
	}

	s.logger.Debug("config persisted", clog.String("path", s.filePath))
}

// Subscribe 订阅提交事件
func (s *store[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	ch := make(chan Event[T], 10)
	if s.closed.Load() {
		close(ch)
		return ch
	}

	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()

	// Cleanup 负责关闭全部订阅通道，这里只需退出，不能再碰 ch
	go func() {
		select {
		case <-ctx.Done():
			s.removeSub(ch)
		case <-s.closedCh:
		}
	}()

	return ch
}

func (s *store[T]) removeSub(ch chan Event[T]) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for i, c := range s.subs {
		if c == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// notify 非阻塞地向所有订阅者发布提交事件
func (s *store[T]) notify(source string, cfg T) {
	event := Event[T]{
		Config:    cfg,
		Source:    source,
		Timestamp: time.Now(),
	}

	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
			s.logger.Warn("subscriber channel full, event dropped",
				clog.String("source", source))
		}
	}
}

// Cleanup 取消全部后台任务并关闭订阅通道
func (s *store[T]) Cleanup() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.stopWatcher()
	s.stopAutoSave()

	s.subMu.Lock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	s.subMu.Unlock()

	close(s.closedCh)

	s.logger.Info("config store cleaned up")
}

// toMap 把负载转换为顶层键 map（结构化读写，不解释业务字段）
func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// fromMap 把 map 还原为负载类型
func fromMap(m map[string]any, v any) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
