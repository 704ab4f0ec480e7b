package datatable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Loader 从目录中按表名读取 JSON 数据表，每张表对应 <dir>/<table>.json
type Loader struct {
	dir    string
	logger logger.Logger
}

// NewLoader 创建本地文件加载器
func NewLoader(dir string, l logger.Logger) (*Loader, error) {
	if l == nil {
		return nil, fmt.Errorf("logger is required for NewLoader")
	}
	return &Loader{dir: dir, logger: l.Named("datatable")}, nil
}

// Path 表文件路径，表名统一转小写
func (l *Loader) Path(table string) string {
	return filepath.Join(l.dir, strings.ToLower(table)+".json")
}

// Raw 读取表文件内容，文件不存在时返回 nil 且不报错
func (l *Loader) Raw(table string) ([]byte, error) {
	path := l.Path(table)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("optional data table not found, treating as empty",
				"table", table,
				"path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data table %s: %w", path, err)
	}
	return data, nil
}

// Load 读取并解码为 T 的数组，文件不存在时返回空切片
func Load[T any](l *Loader, table string) ([]T, error) {
	data, err := l.Raw(table)
	if err != nil || data == nil {
		return nil, err
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data table %s: %w", l.Path(table), err)
	}
	l.logger.Info("data table loaded", "table", table, "rows", len(rows))
	return rows, nil
}
