package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示插入的数据违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrForeignKey 表示引用的父记录不存在 (外键约束失败)
	ErrForeignKey = errors.New("repository: referenced record does not exist")
)

// 特定资源的错误 (基于通用错误，便于 errors.Is 判断)
var (
	ErrRoomNotFound  = ErrNotFound
	ErrEventNotFound = ErrNotFound
)
