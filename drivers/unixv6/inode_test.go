package unixv6_test

import (
	"testing"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/drivers/unixv6"
	"github.com/dargueta/u6fs/errors"
	u6test "github.com/dargueta/u6fs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInode__Root(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)

	inode, err := fs.ReadInode(unixv6.RootInumber)
	require.NoError(t, err)
	assert.True(t, inode.IsAllocated())
	assert.True(t, inode.IsDir())
	assert.EqualValues(t, 2, inode.NLink)
	assert.EqualValues(t, 0, inode.Size())
}

func TestReadInode__OutOfRange(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)

	_, err := fs.ReadInode(0)
	assert.ErrorIs(t, err, errors.ErrInodeOutOfRange)

	_, err = fs.ReadInode(32)
	assert.ErrorIs(t, err, errors.ErrInodeOutOfRange)

	_, err = fs.ReadInode(31)
	assert.ErrorIs(t, err, errors.ErrUnallocatedInode, "last valid inode should be reachable")
}

func TestWriteInode__RoundTrip(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)

	written := unixv6.Inode{
		Flags: unixv6.FlagIsAllocated | unixv6.DefaultFileMode,
		NLink: 1,
		UID:   4,
		GID:   5,
		Addr:  [8]unixv6.BlockNum{10, 11, 12},
	}
	require.NoError(t, written.SetSize(1234))
	require.NoError(t, fs.WriteInode(17, &written))

	read, err := fs.ReadInode(17)
	require.NoError(t, err)
	assert.Equal(t, written, read)

	// Neighbors in the same sector must be untouched.
	_, err = fs.ReadInode(16)
	assert.ErrorIs(t, err, errors.ErrUnallocatedInode)
	_, err = fs.ReadInode(18)
	assert.ErrorIs(t, err, errors.ErrUnallocatedInode)
}

func TestWriteInode__OutOfRange(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)
	inode := unixv6.Inode{Flags: unixv6.FlagIsAllocated}

	assert.ErrorIs(t, fs.WriteInode(0, &inode), errors.ErrInodeOutOfRange)
	assert.ErrorIs(t, fs.WriteInode(32, &inode), errors.ErrInodeOutOfRange)
}

// AllocateInode hands out every free inode exactly once.
func TestAllocateInode__NeverRepeats(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 1)

	seen := map[unixv6.Inumber]bool{}
	for {
		inumber, err := fs.AllocateInode()
		if err != nil {
			assert.ErrorIs(t, err, errors.ErrBitmapFull)
			break
		}
		assert.Falsef(t, seen[inumber], "inode %d allocated twice", inumber)
		assert.GreaterOrEqual(t, inumber, unixv6.Inumber(2))
		assert.Less(t, inumber, unixv6.Inumber(16))
		seen[inumber] = true
	}
	assert.Len(t, seen, 14)
}

func TestFindSector__Unallocated(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)
	inode := unixv6.Inode{Size1: 100}

	_, err := fs.FindSector(&inode, 0)
	assert.ErrorIs(t, err, errors.ErrUnallocatedInode)
}

func TestFindSector__Direct(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)
	inode := unixv6.Inode{
		Flags: unixv6.FlagIsAllocated,
		Addr:  [8]unixv6.BlockNum{20, 21, 22, 23, 24, 25, 26, 27},
	}
	require.NoError(t, inode.SetSize(unixv6.MaxSmallFileSize))

	for i := int64(0); i < 8; i++ {
		sector, err := fs.FindSector(&inode, i)
		require.NoError(t, err)
		assert.EqualValues(t, 20+i, sector)
	}

	_, err := fs.FindSector(&inode, 8)
	assert.ErrorIs(t, err, errors.ErrOffsetOutOfRange)
	_, err = fs.FindSector(&inode, -1)
	assert.ErrorIs(t, err, errors.ErrOffsetOutOfRange)
}

// An empty file has no blocks at all, not even block 0.
func TestFindSector__EmptyFile(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)
	inode := unixv6.Inode{Flags: unixv6.FlagIsAllocated}

	_, err := fs.FindSector(&inode, 0)
	assert.ErrorIs(t, err, errors.ErrOffsetOutOfRange)
}

func TestFindSector__PartialLastSector(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)
	inode := unixv6.Inode{Flags: unixv6.FlagIsAllocated, Addr: [8]unixv6.BlockNum{20, 21}}
	require.NoError(t, inode.SetSize(513))

	sector, err := fs.FindSector(&inode, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 21, sector)

	_, err = fs.FindSector(&inode, 2)
	assert.ErrorIs(t, err, errors.ErrOffsetOutOfRange)
}

func TestFindSector__TooLarge(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)
	inode := unixv6.Inode{Flags: unixv6.FlagIsAllocated}
	require.NoError(t, inode.SetSize(unixv6.MaxFileSize+1))

	_, err := fs.FindSector(&inode, 0)
	assert.ErrorIs(t, err, errors.ErrFileTooLarge)
}

// One byte past the direct limit switches the file to indirect addressing.
func TestFindSector__DirectIndirectBoundary(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)

	file, err := fs.CreateFile(unixv6.DefaultFileMode)
	require.NoError(t, err)

	require.NoError(t, file.WriteBytes(make([]byte, unixv6.MaxSmallFileSize)))
	directInode := file.Inode()
	assert.False(t, directInode.IsLarge())
	for i := int64(0); i < 8; i++ {
		sector, err := fs.FindSector(&directInode, i)
		require.NoError(t, err)
		assert.Equal(t, directInode.Addr[i], sector)
	}

	require.NoError(t, file.WriteBytes([]byte{0xAA}))
	largeInode := file.Inode()
	assert.True(t, largeInode.IsLarge())
	assert.NotEqual(t, directInode.Addr[0], largeInode.Addr[0], "no indirect sector")
	for i := 1; i < 8; i++ {
		assert.EqualValuesf(t, 0, largeInode.Addr[i], "address slot %d not cleared", i)
	}

	// The old direct addresses now come through the indirect sector.
	for i := int64(0); i < 8; i++ {
		sector, err := fs.FindSector(&largeInode, i)
		require.NoError(t, err)
		assert.Equal(t, directInode.Addr[i], sector)
	}

	ninth, err := fs.FindSector(&largeInode, 8)
	require.NoError(t, err)
	assert.True(t, fs.SectorBitmap().IsUsed(common.UnitID(ninth)))

	_, err = fs.FindSector(&largeInode, 9)
	assert.ErrorIs(t, err, errors.ErrOffsetOutOfRange)
}

func TestScanInodes__StopsAtFirstUnallocated(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)
	require.NoError(t, fs.AddFile("/a", unixv6.DefaultFileMode, []byte("a")))
	require.NoError(t, fs.AddFile("/b", unixv6.DefaultFileMode, []byte("bb")))

	// Leave a gap at 4.
	gapped := unixv6.Inode{Flags: unixv6.FlagIsAllocated}
	require.NoError(t, fs.WriteInode(5, &gapped))

	var visited []unixv6.Inumber
	err := fs.ScanInodes(func(inumber unixv6.Inumber, inode *unixv6.Inode) error {
		visited = append(visited, inumber)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []unixv6.Inumber{1, 2, 3}, visited)
}

func TestScanInodes__CallbackError(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 64, 2)

	err := fs.ScanInodes(func(unixv6.Inumber, *unixv6.Inode) error {
		return errors.ErrNotSupported
	})
	assert.ErrorIs(t, err, errors.ErrNotSupported)
}
