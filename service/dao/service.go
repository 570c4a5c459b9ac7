package dao

import (
	"context"
)

// Filter selects entities returned by List.
type Filter[T any] func(t *T) bool

type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, filters ...Filter[T]) ([]*T, error)
}
