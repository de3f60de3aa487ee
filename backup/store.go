package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ceyewan/confkeep/clog"
	"github.com/ceyewan/confkeep/jsonc"
	"github.com/ceyewan/confkeep/metrics"
)

// timestampLayout 零填充时间戳，保证文件名降序即时间降序
const timestampLayout = "20060102_150405"

// 指标常量定义
const (
	// MetricSnapshotTotal 快照创建次数 (Counter)，按原因与结果打标签
	MetricSnapshotTotal = "confkeep_backup_total"

	// LabelReason 快照原因标签
	LabelReason = "reason"

	// LabelResult 快照结果标签 (ok/failed/skipped)
	LabelResult = "result"
)

// store 实现 Store 接口（非导出）
type store struct {
	cfg    *Config
	logger clog.Logger
	now    func() time.Time // 便于测试替换

	snapshotTotal metrics.Counter
}

func newStore(cfg *Config, options *options) *store {
	s := &store{
		cfg:    cfg,
		logger: options.logger.WithNamespace("backup"),
		now:    time.Now,
	}
	s.snapshotTotal, _ = options.meter.Counter(MetricSnapshotTotal, "配置快照创建次数")
	return s
}

// Snapshot 复制当前配置文件为快照并清理超出保留上限的旧快照
func (s *store) Snapshot(reason string) {
	data, err := os.ReadFile(s.cfg.FilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("snapshot read failed",
				clog.String("path", s.cfg.FilePath),
				clog.Error(err))
			s.countSnapshot(reason, "failed")
			return
		}
		// 配置文件不存在时是空操作
		s.countSnapshot(reason, "skipped")
		return
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		s.logger.Warn("snapshot dir create failed",
			clog.String("dir", s.cfg.Dir),
			clog.Error(err))
		s.countSnapshot(reason, "failed")
		return
	}

	name := fmt.Sprintf("%s_%s_%s.%s",
		s.cfg.ConfigID, reason, s.now().Format(timestampLayout), s.cfg.Ext)
	target := filepath.Join(s.cfg.Dir, name)

	if err := os.WriteFile(target, data, 0o644); err != nil {
		s.logger.Warn("snapshot write failed",
			clog.String("path", target),
			clog.Error(err))
		s.countSnapshot(reason, "failed")
		return
	}

	s.logger.Info("snapshot created",
		clog.String("reason", reason),
		clog.String("file", name))
	s.countSnapshot(reason, "ok")

	s.prune()
}

func (s *store) countSnapshot(reason, result string) {
	s.snapshotTotal.Inc(context.Background(),
		metrics.L(LabelReason, reason), metrics.L(LabelResult, result))
}

// prune 按文件名降序保留最新 MaxBackups 份，删除其余
func (s *store) prune() {
	names, err := s.list()
	if err != nil {
		s.logger.Warn("snapshot list failed", clog.Error(err))
		return
	}
	if len(names) <= s.cfg.MaxBackups {
		return
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[s.cfg.MaxBackups:] {
		if err := os.Remove(filepath.Join(s.cfg.Dir, name)); err != nil {
			s.logger.Warn("snapshot prune failed",
				clog.String("file", name),
				clog.Error(err))
		}
	}

	s.logger.Debug("snapshots pruned",
		clog.Int("kept", s.cfg.MaxBackups),
		clog.Int("removed", len(names)-s.cfg.MaxBackups))
}

// RestoreLatestValid 读取最近修改的快照并返回剥离注释后的 JSON 文本
func (s *store) RestoreLatestValid() (string, bool) {
	names, err := s.list()
	if err != nil || len(names) == 0 {
		return "", false
	}

	newest := ""
	var newestMod time.Time
	for _, name := range names {
		info, err := os.Stat(filepath.Join(s.cfg.Dir, name))
		if err != nil {
			continue
		}
		mod := info.ModTime()
		// 修改时间相同按名称（时间戳编码）取大者
		if newest == "" || mod.After(newestMod) || (mod.Equal(newestMod) && name > newest) {
			newest, newestMod = name, mod
		}
	}
	if newest == "" {
		return "", false
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.Dir, newest))
	if err != nil {
		s.logger.Warn("restore read failed",
			clog.String("file", newest),
			clog.Error(err))
		return "", false
	}

	payload, _ := jsonc.Parse(string(data))
	if payload == "" || !json.Valid([]byte(payload)) {
		s.logger.Warn("restore candidate invalid", clog.String("file", newest))
		return "", false
	}

	s.logger.Info("restored latest backup", clog.String("file", newest))
	return payload, true
}

// list 返回备份目录中属于本配置的快照文件名
func (s *store) list() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	prefix := s.cfg.ConfigID + "_"
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
