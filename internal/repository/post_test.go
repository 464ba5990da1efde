package repository

import (
	"context"
	"regexp"
	"testing"

	"quad/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Content: "first day on the quad", UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_SetInteraction_LikeOn(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	insertSQL := regexp.QuoteMeta(`INSERT INTO post_likes (user_id, post_id, created_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (user_id, post_id) DO NOTHING`)

	// First like inserts a row.
	mock.ExpectExec(insertSQL).
		WithArgs(7, 42).
		WillReturnResult(sqlmock.NewResult(1, 1))

	changed, err := repo.SetInteraction(ctx, models.InteractionLike, 7, 42, true)
	require.NoError(t, err)
	assert.True(t, changed)

	// A second like conflicts with the unique constraint and changes nothing.
	mock.ExpectExec(insertSQL).
		WithArgs(7, 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err = repo.SetInteraction(ctx, models.InteractionLike, 7, 42, true)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_SetInteraction_LikeOff(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	deleteSQL := regexp.QuoteMeta(`DELETE FROM post_likes WHERE user_id = $1 AND post_id = $2`)

	mock.ExpectExec(deleteSQL).
		WithArgs(7, 42).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.SetInteraction(ctx, models.InteractionLike, 7, 42, false)
	require.NoError(t, err)
	assert.True(t, changed)

	// Unliking again finds no row and stays a no-op.
	mock.ExpectExec(deleteSQL).
		WithArgs(7, 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err = repo.SetInteraction(ctx, models.InteractionLike, 7, 42, false)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_SetInteraction_TablePerKind(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO reposts`).
		WithArgs(7, 42).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO bookmarks`).
		WithArgs(7, 42).
		WillReturnResult(sqlmock.NewResult(1, 1))

	changed, err := repo.SetInteraction(ctx, models.InteractionRepost, 7, 42, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SetInteraction(ctx, models.InteractionBookmark, 7, 42, true)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = repo.SetInteraction(ctx, models.InteractionKind("boost"), 7, 42, true)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetInteractionSnapshot(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{
		"likes_count", "reposts_count", "bookmarks_count", "comments_count",
		"liked", "reposted", "bookmarked",
	}).AddRow(3, 1, 0, 5, true, false, false)

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(rows)

	snap, err := repo.GetInteractionSnapshot(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.LikesCount)
	assert.Equal(t, 1, snap.RepostsCount)
	assert.Equal(t, 0, snap.BookmarksCount)
	assert.Equal(t, 5, snap.CommentsCount)
	assert.True(t, snap.Liked)
	assert.False(t, snap.Reposted)
	assert.GreaterOrEqual(t, snap.LikesCount, 0)

	assert.NoError(t, mock.ExpectationsWereMet())
}
