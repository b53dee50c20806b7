package unixv6_test

import (
	"encoding/binary"
	"testing"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/drivers/unixv6"
	"github.com/dargueta/u6fs/errors"
	u6test "github.com/dargueta/u6fs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat__Layout(t *testing.T) {
	imageBytes := u6test.CreateFormattedImage(t, 1000, 5)

	assert.EqualValues(t, unixv6.BootBlockMagic, imageBytes[0])

	superblock := imageBytes[common.SectorSize : 2*common.SectorSize]
	word := func(index int) uint16 {
		return binary.LittleEndian.Uint16(superblock[index*2:])
	}
	assert.EqualValues(t, 5, word(0), "s_isize")
	assert.EqualValues(t, 1000, word(1), "s_fsize")
	assert.EqualValues(t, 1, word(2), "s_fbmsize")
	assert.EqualValues(t, 1, word(3), "s_ibmsize")
	assert.EqualValues(t, 2, word(4), "s_inode_start")
	assert.EqualValues(t, 7, word(5), "s_block_start")

	// Inode 0 and everything after the root directory is zeroed.
	inodeTable := imageBytes[2*common.SectorSize : 7*common.SectorSize]
	assert.Equal(t, make([]byte, unixv6.InodeSize), inodeTable[:unixv6.InodeSize])
	assert.Equal(t, make([]byte, len(inodeTable)-2*unixv6.InodeSize), inodeTable[2*unixv6.InodeSize:])

	// The last sector is written to set the image's size.
	assert.Equal(t, make([]byte, common.SectorSize), imageBytes[999*common.SectorSize:])
}

func TestFormat__InvalidGeometry(t *testing.T) {
	cases := []struct {
		name    string
		options unixv6.FormatOptions
	}{
		{"no inode sectors", unixv6.FormatOptions{TotalSectors: 100, InodeSectors: 0}},
		{"no data sectors", unixv6.FormatOptions{TotalSectors: 4, InodeSectors: 2}},
		{"too many sectors", unixv6.FormatOptions{TotalSectors: 65536, InodeSectors: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			imageBytes := make([]byte, 8*common.SectorSize)
			err := unixv6.Format(u6test.NewStream(imageBytes), tc.options)
			assert.ErrorIs(t, err, errors.ErrInvalidArgument)
			assert.Equal(t, make([]byte, len(imageBytes)), imageBytes, "image was modified")
		})
	}
}

func TestFormat__MinimumSize(t *testing.T) {
	fs, _ := u6test.MountFormattedImage(t, 4, 1)

	assert.EqualValues(t, 1, fs.SectorBitmap().Capacity())
	require.NoError(t, fs.AddFile("/x", unixv6.DefaultFileMode, nil))

	err := fs.AddFile("/y", unixv6.DefaultFileMode, make([]byte, 600))
	assert.ErrorIs(t, err, errors.ErrBitmapFull)
}
