package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	"github.com/bigbluebutton/bbb-frame-monitor/internal/redistest"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	s, err := NewFile(config.FileStore{Directory: filepath.Join(tmpDir, "snapshots"), FileMode: "0640"})
	require.NoError(t, err)
	defer s.Close()

	t.Run("Put_Success", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "1700000000000", []byte(`{"totalFrames":1}`)))

		p := filepath.Join(tmpDir, "snapshots", "1700000000000.json")
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

		b, err := s.Get(ctx, "1700000000000")
		require.NoError(t, err)
		assert.Equal(t, `{"totalFrames":1}`, string(b))
	})

	t.Run("Put_Overwrite", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "1", []byte("a")))
		require.NoError(t, s.Put(ctx, "1", []byte("b")))

		b, err := s.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "b", string(b))
	})

	t.Run("Put_InvalidKey", func(t *testing.T) {
		assert.Error(t, s.Put(ctx, "../escape", []byte("x")))
		assert.Error(t, s.Put(ctx, "", []byte("x")))
	})

	t.Run("Put_CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, s.Put(cctx, "2", []byte("x")), context.Canceled)
	})
}

func TestFile_InvalidFileMode(t *testing.T) {
	s, err := NewFile(config.FileStore{Directory: t.TempDir(), FileMode: "rw"})
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), s.fileMode)
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(config.SQLiteStore{Path: filepath.Join(t.TempDir(), "db", "monitor.db")})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "1700000000000", []byte(`{"totalFrames":5}`)))
	require.NoError(t, s.Put(ctx, "1700000000000", []byte(`{"totalFrames":6}`)))

	b, err := s.Get(ctx, "1700000000000")
	require.NoError(t, err)
	assert.Equal(t, `{"totalFrames":6}`, string(b))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSQLite_InvalidTable(t *testing.T) {
	_, err := NewSQLite(config.SQLiteStore{Path: ":memory:", Table: "drop table;"})
	assert.Error(t, err)
}

func TestRedis(t *testing.T) {
	srv := redistest.NewServer(t)
	ctx := context.Background()

	s, err := NewRedis(config.RedisStore{
		Redis:  config.Redis{Network: "tcp", Address: srv.Addr()},
		Prefix: "frameratemonitor",
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "1700000000000", []byte(`{"totalFrames":5}`)))

	v, ok := srv.Get("frameratemonitor:1700000000000")
	require.True(t, ok)
	assert.Equal(t, `{"totalFrames":5}`, string(v))

	b, err := s.Get(ctx, "1700000000000")
	require.NoError(t, err)
	assert.Equal(t, `{"totalFrames":5}`, string(b))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, redis.ErrNil)
}

func TestRedis_NoPrefix(t *testing.T) {
	srv := redistest.NewServer(t)

	s, err := NewRedis(config.RedisStore{Redis: config.Redis{Network: "tcp", Address: srv.Addr()}})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), "1", []byte("x")))
	_, ok := srv.Get("1")
	assert.True(t, ok)
}

func TestNewStore(t *testing.T) {
	cfg := (&config.Config{App: config.App{Name: "test"}}).GetDefaults()

	cfg.Store.Adapter = "file"
	cfg.Store.Adapters["file"] = &config.FileStore{Directory: t.TempDir()}
	s, err := NewStore(cfg.Store)
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)
	require.NoError(t, s.Close())

	cfg.Store.Adapter = "sqlite"
	cfg.Store.Adapters["sqlite"] = map[string]interface{}{"path": ":memory:"}
	s, err = NewStore(cfg.Store)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	srv := redistest.NewServer(t)
	cfg.Store.Adapter = "redis"
	cfg.Store.Adapters["redis"] = map[string]interface{}{"address": srv.Addr(), "network": "tcp", "prefix": "fm"}
	s, err = NewStore(cfg.Store)
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, s)
	require.NoError(t, s.Close())

	cfg.Store.Adapter = "mmkv"
	_, err = NewStore(cfg.Store)
	assert.EqualError(t, err, "unknown store adapter 'mmkv'")
}
