package store

import (
	"context"
	"errors"
)

// ErrMiss 槽不存在
var ErrMiss = errors.New("slot miss")

// UpdateFunc 接收槽当前内容（不存在时为 nil），返回要整体写回的新内容
type UpdateFunc func(current []byte) ([]byte, error)

// Slot 以固定键命名的持久槽，内容总是整体读写
//
// Update 必须是原子的读-改-写：同一键上并发的 Update 不会互相覆盖。
// fn 可能因冲突被重复调用，因此不能有外部副作用。
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
