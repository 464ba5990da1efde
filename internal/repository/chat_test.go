package repository

import (
	"context"
	"testing"

	"quad/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestChatRepository_GetOrCreateDirectConversation_Existing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM "conversations" WHERE direct_key`).
		WithArgs("1:2", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "direct_key"}).AddRow(5, "1:2"))

	conv, created, err := repo.GetOrCreateDirectConversation(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint(5), conv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_GetOrCreateDirectConversation_CreatesOnce(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	// Argument order must not matter: (2, 1) resolves the same thread.
	mock.ExpectQuery(`SELECT .* FROM "conversations" WHERE direct_key`).
		WithArgs("1:2", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations" .*ON CONFLICT \("direct_key"\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))
	mock.ExpectExec(`INSERT INTO "conversation_participants"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	conv, created, err := repo.GetOrCreateDirectConversation(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint(6), conv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_GetOrCreateDirectConversation_AdoptsRaceWinner(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM "conversations" WHERE direct_key`).
		WithArgs("1:2", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	// The conflicting insert returns no row, so the concurrent winner's
	// thread is fetched instead of minting a second one.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations" .*ON CONFLICT \("direct_key"\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .* FROM "conversations" WHERE direct_key`).
		WithArgs("1:2", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "direct_key"}).AddRow(42, "1:2"))
	mock.ExpectCommit()

	conv, created, err := repo.GetOrCreateDirectConversation(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint(42), conv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_CreateMessage_BumpsConversation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "messages"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec(`UPDATE "conversations" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg := &models.Message{ConversationID: 5, SenderID: 1, Content: "hey"}
	err := repo.CreateMessage(ctx, msg)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
