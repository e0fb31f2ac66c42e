package filerepo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/sahasik/credentials"
	"github.com/stretchr/testify/require"
)

func TestFileRepo_FailedSaveLeavesNoTempFile(t *testing.T) {
	// a non-empty directory at the target path makes the final rename fail
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o700))

	f := New(path)
	err := f.save(&snapshot{Entries: map[string]credentials.Entry{
		"refresh_token": {Name: "refresh_token", Value: "R1", Expires: time.Now().Add(time.Hour)},
	}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "[FileRepo.save]")

	_, statErr := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(statErr))
}
