package store

import "github.com/ceyewan/confkeep/xerrors"

// 快照原因标签，也是错误分类的机器可读名称。
// 除内置值外，调用方可以向 backup.Store 提供任意自定义原因。
const (
	ReasonEmptyFile    = "empty_file"    // 剥离注释后文件无内容
	ReasonParseError   = "parse_error"   // 内容不符合目标 schema 类型
	ReasonJSONError    = "json_error"    // JSON 语法本身非法
	ReasonReloadError  = "reload_error"  // 重载过程中的其他 I/O 或意外失败
	ReasonPreMigration = "pre_migration" // 版本迁移前留底
)

// 内部错误哨兵。公开操作不向调用方传播它们，
// 全部在操作边界内被自愈链消化，只出现在日志里。
var (
	ErrEmptyFile  = xerrors.New("config file empty after comment stripping")
	ErrParse      = xerrors.New("config content does not match schema")
	ErrJSONSyntax = xerrors.New("config content is malformed JSON")
	ErrReload     = xerrors.New("config reload failed")
	ErrSave       = xerrors.New("config save failed")
)
