package database

import (
	"testing"

	modelspkg "quad/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesInteractionTables(t *testing.T) {
	var hasLike, hasRepost, hasBookmark bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.PostLike:
			hasLike = true
		case *modelspkg.Repost:
			hasRepost = true
		case *modelspkg.Bookmark:
			hasBookmark = true
		}
	}
	require.True(t, hasLike, "PersistentModels should include PostLike")
	require.True(t, hasRepost, "PersistentModels should include Repost")
	require.True(t, hasBookmark, "PersistentModels should include Bookmark")
}
