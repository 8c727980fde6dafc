package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dsa-quiz-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestProgressStoreUpsertAndList(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	defer db.Close()

	store := NewProgressStore(db)
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	_, ok, err := store.Get(ctx, "u1", "trees")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(ctx, domain.Progress{UserID: "u1", TopicID: "trees", Score: 40, Correct: 2, Total: 5, Difficulty: "mixed", LastAttempt: at}))
	require.NoError(t, store.Save(ctx, domain.Progress{UserID: "u1", TopicID: "trees", Score: 80, Correct: 4, Total: 5, Passed: true, Difficulty: "hard", LastAttempt: at.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, domain.Progress{UserID: "u1", TopicID: "arrays-strings", Score: 100, Correct: 5, Total: 5, Passed: true, Difficulty: "easy", LastAttempt: at}))
	require.NoError(t, store.Save(ctx, domain.Progress{UserID: "u2", TopicID: "trees", Score: 20, LastAttempt: at}))

	got, ok, err := store.Get(ctx, "u1", "trees")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 80.0, got.Score)
	require.True(t, got.Passed)
	require.Equal(t, "hard", got.Difficulty)
	require.True(t, got.LastAttempt.Equal(at.Add(time.Hour)))

	rows, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "arrays-strings", rows[0].TopicID)
	require.Equal(t, "trees", rows[1].TopicID)
}

func TestProgressStoreTopRanksAcrossUsers(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	defer db.Close()

	store := NewProgressStore(db)
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, domain.Progress{UserID: "u1", TopicID: "trees", Score: 80, LastAttempt: at.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, domain.Progress{UserID: "u2", TopicID: "trees", Score: 80, LastAttempt: at}))
	require.NoError(t, store.Save(ctx, domain.Progress{UserID: "u3", TopicID: "graphs", Score: 95, LastAttempt: at}))
	require.NoError(t, store.Save(ctx, domain.Progress{UserID: "u1", TopicID: "arrays-strings", Score: 40, LastAttempt: at}))

	rows, err := store.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"u3", "u2", "u1"}, []string{rows[0].UserID, rows[1].UserID, rows[2].UserID})
	require.Equal(t, "trees", rows[2].TopicID)
	require.True(t, rows[1].LastAttempt.Equal(at))
}
