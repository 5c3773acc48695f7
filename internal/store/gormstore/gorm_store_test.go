package gormstore

import (
	"path/filepath"
	"testing"

	"tradejournal/internal/store"
	"tradejournal/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(Options{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "journal.db"), MaxOpenConns: 1})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "oracle"})
	assert.Error(t, err)
	_, err = Open(Options{Driver: "sqlite"})
	assert.Error(t, err)
}
