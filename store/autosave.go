package store

import (
	"context"
	"time"

	"github.com/ceyewan/confkeep/clog"
	"github.com/ceyewan/confkeep/metrics"
)

// EnableAutoSave 幂等地启动自动保存任务
//
// 任务按固定间隔比对当前值的内容哈希与最后写盘哈希，有漂移即落盘。
// 这让宿主可以直接修改内存配置对象而不必每次显式调用 Save。
func (s *store[T]) EnableAutoSave() {
	if s.closed.Load() {
		return
	}
	s.taskMu.Lock()
	defer s.taskMu.Unlock()
	if s.autosaver != nil {
		return
	}

	interval := time.Duration(s.cfg.Watcher.AutoSaveIntervalMs) * time.Millisecond
	t := &task{stopCh: make(chan struct{}), doneCh: make(chan struct{})}
	s.autosaver = t
	go s.autoSaveLoop(t, interval)

	s.logger.Info("auto save started", clog.Duration("interval", interval))
}

func (s *store[T]) autoSaveLoop(t *task, interval time.Duration) {
	defer close(t.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			s.logger.Info("auto save stopped")
			return
		case <-ticker.C:
			s.autoSaveOnce()
		}
	}
}

// autoSaveOnce 单次检查与落盘，与其他读-改-写序列共用存储锁
func (s *store[T]) autoSaveOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hashOf(s.current) == s.lastSavedHash {
		return
	}

	s.logger.Debug("in-memory config drifted, autosaving")
	s.persistLocked(s.current, s.comments)
	s.autoSaveTotal.Inc(context.Background(), metrics.L(LabelResult, "ok"))
}

// DisableAutoSave 请求自动保存任务协作取消并等待其停止
func (s *store[T]) DisableAutoSave() {
	s.stopAutoSave()
}

func (s *store[T]) stopAutoSave() {
	s.taskMu.Lock()
	t := s.autosaver
	s.autosaver = nil
	s.taskMu.Unlock()

	if t == nil {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}
