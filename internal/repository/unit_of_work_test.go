package repository

import (
	"context"
	"errors"
	"testing"

	"prism/internal/model"
	"prism/pkg/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_Run(t *testing.T) {
	errLost := errors.New("task transition lost")
	tests := []struct {
		name     string
		affected int64
		expect   func(mock sqlmock.Sqlmock)
		wantErr  error
	}{
		{
			name:     "commits when every write lands",
			affected: 1,
			expect:   func(mock sqlmock.Sqlmock) { mock.ExpectCommit() },
		},
		{
			name:     "rolls back a lost transition",
			affected: 0,
			expect:   func(mock sqlmock.Sqlmock) { mock.ExpectRollback() },
			wantErr:  errLost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			uow := NewUnitOfWork(db)
			tasks := NewTaskRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(sqlPattern(`UPDATE "tasks" SET`, `WHERE status = $4`)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			tt.expect(mock)

			err := uow.Run(context.Background(), func(opts ...utils.DBOption) error {
				task := &model.Task{ID: 7, Status: model.TaskStatusInProgress}
				applied, err := tasks.Transition(context.Background(), task, model.TaskStatusTodo, opts...)
				if err != nil {
					return err
				}
				if !applied {
					return errLost
				}
				return nil
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUnitOfWork_RunRollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUnitOfWork(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = uow.Run(context.Background(), func(...utils.DBOption) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
