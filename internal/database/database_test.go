package database

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sample struct {
	ID   uint
	Name string
}

func memoryName(t *testing.T) string {
	return strings.ReplaceAll(t.Name(), "/", "_")
}

func TestConnect_Sqlite(t *testing.T) {
	m := NewManager(zerolog.Nop(), Config{Driver: "sqlite", MemoryName: memoryName(t)})
	require.NoError(t, m.Connect())
	defer m.Close()

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup(&sample{}))
	require.NoError(t, m.DB.Create(&sample{Name: "a"}).Error)

	var n int64
	require.NoError(t, m.DB.Model(&sample{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestConnect_PostgresFallsBackToSqlite(t *testing.T) {
	m := NewManager(zerolog.Nop(), Config{
		Driver:     "postgres",
		Host:       "127.0.0.1",
		Port:       "1",
		Username:   "nobody",
		Database:   "none",
		MemoryName: memoryName(t),
	})
	require.NoError(t, m.Connect())
	defer m.Close()

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestClose_DumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	m := NewManager(zerolog.Nop(), Config{Driver: "sqlite", MemoryName: memoryName(t), SqliteFilePath: path})
	require.NoError(t, m.Connect())
	require.NoError(t, m.Setup(&sample{}))
	require.NoError(t, m.DB.Create([]sample{{Name: "a"}, {Name: "b"}}).Error)

	require.NoError(t, m.DumpMemoryToDisk())
	require.NoError(t, m.DumpMemoryToDisk(), "existing dump is replaced")
	require.NoError(t, m.Close())
	assert.False(t, m.IsValid)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Model(&sample{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
	sqlDB, _ := db.DB()
	sqlDB.Close()
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), Config{})
	assert.Error(t, m.Setup(&sample{}))
	assert.NoError(t, m.Close())
}

func TestDumpMemoryToDisk_NoPath(t *testing.T) {
	m := NewManager(zerolog.Nop(), Config{MemoryName: memoryName(t)})
	require.NoError(t, m.Connect())
	defer m.Close()
	assert.Error(t, m.DumpMemoryToDisk())
}
