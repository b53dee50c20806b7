package unixv6_test

import (
	"testing"

	"github.com/dargueta/u6fs"
	"github.com/dargueta/u6fs/drivers/unixv6"
	"github.com/dargueta/u6fs/errors"
	u6test "github.com/dargueta/u6fs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPopulatedDriver(t *testing.T) u6fs.ReadingDriver {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)
	_, err := fs.CreateEntry("/etc", unixv6.DefaultDirectoryMode)
	require.NoError(t, err)
	require.NoError(t, fs.AddFile("/etc/motd", unixv6.DefaultFileMode, []byte("welcome\n")))
	return fs
}

func TestReadingDriver__Stat(t *testing.T) {
	driver := newPopulatedDriver(t)

	stat, err := driver.Stat("/etc/motd")
	require.NoError(t, err)
	assert.EqualValues(t, 8, stat.Size)
	assert.EqualValues(t, 0o644, stat.FileMode().Perm())
	assert.False(t, stat.IsDir())

	stat, err = driver.Stat("/")
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
	assert.EqualValues(t, unixv6.RootInumber, stat.InodeNumber)

	_, err = driver.Stat("/etc/passwd")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestReadingDriver__ReadDir(t *testing.T) {
	driver := newPopulatedDriver(t)

	entries, err := driver.ReadDir("/etc")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "motd", entries[0].Name)

	_, err = driver.ReadDir("/etc/motd")
	assert.ErrorIs(t, err, errors.ErrInvalidDirectoryInode)
}

func TestReadingDriver__ReadFile(t *testing.T) {
	driver := newPopulatedDriver(t)

	contents, err := driver.ReadFile("/etc/motd")
	require.NoError(t, err)
	assert.Equal(t, "welcome\n", string(contents))

	_, err = driver.ReadFile("/etc")
	assert.ErrorIs(t, err, errors.ErrIsADirectory)
}
