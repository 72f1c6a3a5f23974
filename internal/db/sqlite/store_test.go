package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// testStore opens a fresh database in a temp dir.
func testStore(t *testing.T) (*Store, func()) {
	t.Helper()

	store, err := NewStore(StoreConfig{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		MaxConns: 2,
		WALMode:  true,
	})
	require.NoError(t, err)

	return store, func() { _ = store.Close() }
}

// StoreSuite is a test suite for Store operations.
type StoreSuite struct {
	suite.Suite
	store   *Store
	cleanup func()
}

// SetupTest creates a fresh database before each test.
func (s *StoreSuite) SetupTest() {
	s.store, s.cleanup = testStore(s.T())
}

// TearDownTest cleans up after each test.
func (s *StoreSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

// TestGetStmt tests prepared statement caching.
func (s *StoreSuite) TestGetStmt() {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{
			name:    "valid simple query",
			query:   "SELECT 1",
			wantErr: false,
		},
		{
			name:    "valid query with parameter",
			query:   "SELECT value FROM kv_entries WHERE key = ?",
			wantErr: false,
		},
		{
			name:    "invalid query syntax",
			query:   "SELECT * FROM nonexistent_table WHERE",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			stmt, err := s.store.GetStmt(tt.query)
			if tt.wantErr {
				s.Error(err)
				s.Nil(stmt)
				return
			}
			s.NoError(err)
			s.NotNil(stmt)

			// Second call should return cached statement
			stmt2, err := s.store.GetStmt(tt.query)
			s.NoError(err)
			s.Same(stmt, stmt2)
		})
	}
}

// TestExecContext tests query execution.
func (s *StoreSuite) TestExecContext() {
	ctx := context.Background()

	tests := []struct {
		name         string
		query        string
		args         []interface{}
		wantErr      bool
		wantAffected int64
	}{
		{
			name:         "insert entry",
			query:        `INSERT INTO kv_entries (key, value, updated_at, updated_at_epoch) VALUES (?, ?, datetime('now'), 0)`,
			args:         []interface{}{"k1", "v1"},
			wantAffected: 1,
		},
		{
			name:    "invalid query",
			query:   "INSERT INTO nonexistent_table VALUES (?)",
			args:    []interface{}{"test"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			result, err := s.store.ExecContext(ctx, tt.query, tt.args...)
			if tt.wantErr {
				s.Error(err)
				return
			}
			s.NoError(err)
			affected, _ := result.RowsAffected()
			s.Equal(tt.wantAffected, affected)
		})
	}
}

// TestPing tests database connection health check.
func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping())
}

// TestWALMode tests that the journal mode pragma is applied.
func (s *StoreSuite) TestWALMode() {
	var mode string
	err := s.store.DB().QueryRow("PRAGMA journal_mode").Scan(&mode)
	s.NoError(err)
	s.Equal("wal", mode)
}

// TestConcurrentStmtCache tests concurrent access to statement cache.
func (s *StoreSuite) TestConcurrentStmtCache() {
	ctx := context.Background()
	queries := []string{
		"SELECT 1",
		"SELECT 2",
		"SELECT key FROM kv_entries",
		"SELECT value FROM kv_entries",
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			query := queries[i%len(queries)]
			_, _ = s.store.GetStmt(query)
			_, _ = s.store.ExecContext(ctx, "SELECT 1")
			done <- struct{}{}
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestStore_Close(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.GetStmt("SELECT 1")
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.Error(t, store.Ping())
}

func TestNewStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "soilsense.db")

	store, err := NewStore(StoreConfig{Path: path})
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, path)
}
