package gormpersistence

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"hobbyhive-chat/internal/repository"
)

// MySQL 错误码
const (
	mysqlErrDuplicateEntry  = 1062 // 唯一约束冲突
	mysqlErrNoReferencedRow = 1452 // 外键约束失败 (父记录不存在)
)

// mapMySQLError 把驱动层的 MySQL 错误映射为仓库错误。
// 无法识别的错误原样返回，由调用方包装上下文。
func mapMySQLError(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry:
			return repository.ErrDuplicateEntry
		case mysqlErrNoReferencedRow:
			return repository.ErrForeignKey
		}
	}
	return err
}
