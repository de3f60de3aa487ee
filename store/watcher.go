package store

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ceyewan/confkeep/clog"
)

// EnableWatcher 幂等地启动文件变更监听任务
//
// 订阅建立失败只记日志并放弃，不影响宿主进程。
func (s *store[T]) EnableWatcher() {
	if s.closed.Load() {
		return
	}
	s.taskMu.Lock()
	defer s.taskMu.Unlock()
	if s.watcher != nil {
		return
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("create fsnotify watcher failed", clog.Error(err))
		return
	}

	// 订阅父目录而不是文件本身：编辑器多以临时文件 + rename 方式写入，
	// 旧的文件级订阅会随 rename 失效。
	if err := w.Add(filepath.Dir(s.filePath)); err != nil {
		s.logger.Error("watch config dir failed",
			clog.String("dir", filepath.Dir(s.filePath)),
			clog.Error(err))
		_ = w.Close()
		return
	}

	t := &task{stopCh: make(chan struct{}), doneCh: make(chan struct{})}
	s.watcher = t
	go s.watchLoop(w, t)

	s.logger.Info("config watcher started",
		clog.String("path", s.filePath),
		clog.Int("debounce_ms", s.cfg.Watcher.DebounceMs))
}

// watchLoop 监听循环：过滤配置文件事件，防抖后触发重载
func (s *store[T]) watchLoop(w *fsnotify.Watcher, t *task) {
	defer close(t.doneCh)
	defer func() { _ = w.Close() }()

	debounce := time.Duration(s.cfg.Watcher.DebounceMs) * time.Millisecond
	base := filepath.Base(s.filePath)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-t.stopCh:
			s.logger.Info("config watcher stopped")
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			// Write/Create/Rename 覆盖 vim、nano、echo 等各类写入方式
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			s.logger.Debug("config file changed",
				clog.String("op", event.Op.String()))

			// 防抖：每个事件重置计时器，突发写入只触发一次重载；
			// Reload 内部的指纹比对会吞掉未实际变化的触发。
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, s.Reload)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("config watcher error", clog.Error(err))
		}
	}
}

// DisableWatcher 请求监听任务协作取消并等待其停止观察
func (s *store[T]) DisableWatcher() {
	s.stopWatcher()
}

func (s *store[T]) stopWatcher() {
	s.taskMu.Lock()
	t := s.watcher
	s.watcher = nil
	s.taskMu.Unlock()

	if t == nil {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}
