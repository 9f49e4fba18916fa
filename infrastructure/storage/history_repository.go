package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"officepulse/domain"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// HistoryRepository keeps the recent chat window of every scope in Badger.
type HistoryRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, log: log}
}

// Store persists a message under "msg:{scope}:{timestamp_padded}:{id}".
// The 19-digit padding keeps keys in chronological order, the id separates
// two messages written in the same nanosecond.
func (r *HistoryRepository) Store(scope string, msg domain.ChatMessage) error {
	value, err := encode(msg)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%019d:%s", prefix(scope), msg.Timestamp.UnixNano(), msg.ID)
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Recent returns at most limit messages of the scope, oldest first.
func (r *HistoryRepository) Recent(scope string, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := r.db.View(func(txn *badger.Txn) error {
		p := []byte(prefix(scope))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(slices.Clone(p), 0xFF)); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && len(out) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				msg, err := decode(value)
				if err != nil {
					return err
				}
				out = append(out, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// Prune deletes everything but the newest keep messages of the scope and returns how many went away.
func (r *HistoryRepository) Prune(scope string, keep int) (int, error) {
	var stale [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		p := []byte(prefix(scope))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		seen := 0
		for it.Seek(append(slices.Clone(p), 0xFF)); it.ValidForPrefix(p); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	r.log.Debug("Pruned chat history", "scope", scope, "removed", len(stale))
	return len(stale), nil
}

func prefix(scope string) string {
	return "msg:" + url.QueryEscape(scope) + ":"
}

func encode(msg domain.ChatMessage) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":        msg.ID,
		"userId":    msg.AuthorUserID,
		"userName":  msg.AuthorDisplay,
		"avatar":    msg.AuthorAvatar,
		"color":     msg.AuthorColor,
		"message":   msg.Text,
		"lang":      msg.Lang,
		"timestamp": msg.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decode(value []byte) (domain.ChatMessage, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(value, &s); err != nil {
		return domain.ChatMessage{}, err
	}
	f := s.GetFields()
	at, err := time.Parse(time.RFC3339Nano, f["timestamp"].GetStringValue())
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return domain.ChatMessage{
		ID:            f["id"].GetStringValue(),
		AuthorUserID:  f["userId"].GetStringValue(),
		AuthorDisplay: f["userName"].GetStringValue(),
		AuthorAvatar:  f["avatar"].GetStringValue(),
		AuthorColor:   f["color"].GetStringValue(),
		Text:          f["message"].GetStringValue(),
		Lang:          f["lang"].GetStringValue(),
		Timestamp:     at,
	}, nil
}
