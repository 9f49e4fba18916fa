package storage

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"officepulse/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newHistoryRepository(t *testing.T) *HistoryRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHistoryRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func messages(n int, at time.Time) []domain.ChatMessage {
	author := &domain.Session{ID: "s1", UserID: "u1", DisplayName: "Alice", Avatar: "AL", Color: "#3B82F6"}
	out := make([]domain.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.NewChatMessage(author, fmt.Sprintf("meeting %d", i), "en", at.Add(time.Duration(i)*time.Second)))
	}
	return out
}

func TestHistoryRepository_StoreAndRecent(t *testing.T) {
	req := require.New(t)
	repo := newHistoryRepository(t)
	msgs := messages(3, time.Now().UTC())
	for _, m := range msgs {
		req.NoError(repo.Store("community", m))
	}

	got, err := repo.Recent("community", 10)

	req.NoError(err)
	req.Len(got, 3)
	for i := range msgs {
		req.Equal(msgs[i].ID, got[i].ID)
		req.Equal(msgs[i].Text, got[i].Text)
		req.Equal(msgs[i].AuthorAvatar, got[i].AuthorAvatar)
		req.True(msgs[i].Timestamp.Equal(got[i].Timestamp))
		req.Empty(got[i].AuthorSessionID)
	}
}

func TestHistoryRepository_RecentLimit(t *testing.T) {
	req := require.New(t)
	repo := newHistoryRepository(t)
	for _, m := range messages(5, time.Now().UTC()) {
		req.NoError(repo.Store("community", m))
	}

	got, err := repo.Recent("community", 2)

	// Then the newest two come back in chronological order
	req.NoError(err)
	req.Len(got, 2)
	req.Equal("meeting 3", got[0].Text)
	req.Equal("meeting 4", got[1].Text)
}

func TestHistoryRepository_ScopesAreIsolated(t *testing.T) {
	req := require.New(t)
	repo := newHistoryRepository(t)
	msgs := messages(2, time.Now().UTC())
	req.NoError(repo.Store("community", msgs[0]))
	req.NoError(repo.Store("community:eu", msgs[1]))

	got, err := repo.Recent("community", 0)
	req.NoError(err)
	req.Len(got, 1)

	got, err = repo.Recent("other", 0)
	req.NoError(err)
	req.Empty(got)
}

func TestHistoryRepository_Prune(t *testing.T) {
	req := require.New(t)
	repo := newHistoryRepository(t)
	for _, m := range messages(120, time.Now().UTC()) {
		req.NoError(repo.Store("community", m))
	}

	removed, err := repo.Prune("community", 100)
	req.NoError(err)
	req.Equal(20, removed)

	got, err := repo.Recent("community", 0)
	req.NoError(err)
	req.Len(got, 100)
	req.Equal("meeting 20", got[0].Text)
	req.Equal("meeting 119", got[99].Text)

	// Pruning again removes nothing
	removed, err = repo.Prune("community", 100)
	req.NoError(err)
	req.Zero(removed)
}

func TestOpenBadger_InMemory(t *testing.T) {
	req := require.New(t)
	db, err := OpenBadger("")
	req.NoError(err)
	defer db.Close()
	req.True(db.Opts().InMemory)
}
