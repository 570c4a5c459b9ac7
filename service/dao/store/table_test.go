package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/oomadj/service/dao"
)

type entity struct {
	ID   int
	Name string
}

func newEntityTable(options ...Option[int, entity]) *Table[int, entity] {
	return NewTable(func(e *entity) int { return e.ID }, options...)
}

func TestTable_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	table := newEntityTable()

	require.NoError(t, table.Save(ctx, &entity{ID: 1, Name: "a"}))
	require.NoError(t, table.Save(ctx, &entity{ID: 2, Name: "b"}))
	require.NoError(t, table.Save(ctx, &entity{ID: 1, Name: "a2"}))

	loaded, err := table.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a2", loaded.Name)
	assert.Equal(t, []int{1, 2}, table.Keys())

	_, err = table.Load(ctx, 3)
	assert.True(t, errors.Is(err, dao.ErrNotFound))

	require.NoError(t, table.Delete(ctx, 1))
	assert.True(t, errors.Is(table.Delete(ctx, 1), dao.ErrNotFound))
	assert.Equal(t, 1, table.Len())
}

func TestTable_Errors(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		description string
		table       *Table[int, entity]
		entity      *entity
		insert      bool
		expected    error
	}{
		{description: "nil entity", table: newEntityTable(), entity: nil, expected: dao.ErrNilEntity},
		{description: "zero key", table: newEntityTable(), entity: &entity{}, expected: dao.ErrInvalidID},
		{description: "zero key allowed", table: newEntityTable(WithZeroKey[int, entity]()), entity: &entity{}},
		{description: "duplicate insert", table: newEntityTable(), entity: &entity{ID: 7}, insert: true, expected: dao.ErrDuplicate},
	}
	for _, testCase := range testCases {
		var err error
		if testCase.insert {
			require.NoError(t, testCase.table.Insert(ctx, &entity{ID: testCase.entity.ID}), testCase.description)
			err = testCase.table.Insert(ctx, testCase.entity)
		} else {
			err = testCase.table.Save(ctx, testCase.entity)
		}
		if testCase.expected == nil {
			assert.NoError(t, err, testCase.description)
			continue
		}
		assert.True(t, errors.Is(err, testCase.expected), testCase.description)
	}
}

func TestTable_TouchAndList(t *testing.T) {
	ctx := context.Background()
	table := newEntityTable()
	for i := 1; i <= 4; i++ {
		require.NoError(t, table.Insert(ctx, &entity{ID: i}))
	}
	assert.True(t, table.Touch(2))
	assert.False(t, table.Touch(9))
	assert.Equal(t, []int{1, 3, 4, 2}, table.Keys())

	even, err := table.List(ctx, func(e *entity) bool { return e.ID%2 == 0 })
	require.NoError(t, err)
	require.Len(t, even, 2)
	assert.Equal(t, 4, even[0].ID)
	assert.Equal(t, 2, even[1].ID)
	assert.Len(t, table.Values(), 4)
}
