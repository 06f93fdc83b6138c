package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

const (
	chunkPrefix       = "chunk:"
	chunkSequenceKey  = "seq:chunk"
	sequenceBandwidth = 100
)

// ChunkStore is an embedded chunk store. Keys are the big-endian chunk id,
// so prefix iteration yields chunks in id order.
type ChunkStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
}

type loggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any) { l.logger.Error(fmt.Sprintf(msg, items...)) }

func (l *loggerAdapter) Warningf(msg string, items ...any) { l.logger.Warn(fmt.Sprintf(msg, items...)) }

func (l *loggerAdapter) Infof(msg string, items ...any) { l.logger.Debug(fmt.Sprintf(msg, items...)) }

func (l *loggerAdapter) Debugf(msg string, items ...any) { l.logger.Debug(fmt.Sprintf(msg, items...)) }

// Open opens the store at path, or an in-memory store when inMemory is set.
func Open(path string, inMemory bool, logger *slog.Logger) (*ChunkStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &loggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(chunkSequenceKey), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("chunk id sequence: %w", err)
	}
	return &ChunkStore{db: db, seq: seq, logger: logger}, nil
}

func (s *ChunkStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("badger_sequence_release_failed", "error", err)
	}
	return s.db.Close()
}

func chunkKey(id int64) []byte {
	key := make([]byte, len(chunkPrefix)+8)
	copy(key, chunkPrefix)
	binary.BigEndian.PutUint64(key[len(chunkPrefix):], uint64(id))
	return key
}

// InsertChunks assigns ids from 1 upward and writes the chunks in one
// transaction.
func (s *ChunkStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(chunks))
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, c := range chunks {
			next, err := s.seq.Next()
			if err != nil {
				return fmt.Errorf("next chunk id: %w", err)
			}
			c.ID = int64(next) + 1
			raw, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("marshal chunk: %w", err)
			}
			if err := txn.Set(chunkKey(c.ID), raw); err != nil {
				return fmt.Errorf("put chunk %d: %w", c.ID, err)
			}
			ids = append(ids, c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *ChunkStore) GetByID(ctx context.Context, id int64) (*domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var c domain.Chunk
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.WrapError(domain.ErrChunkNotFound, "get chunk", fmt.Errorf("id=%d", id))
		}
		return nil, fmt.Errorf("read chunk %d: %w", id, err)
	}
	return &c, nil
}

func (s *ChunkStore) ListChunks(ctx context.Context) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var c domain.Chunk
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return fmt.Errorf("decode chunk: %w", err)
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return ctx.Err()
	})
	return n, err
}
