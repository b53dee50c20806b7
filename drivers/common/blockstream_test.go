package common_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newRandomSectorStream(t *testing.T, totalSectors uint) (*common.SectorStream, []byte) {
	backingData := make([]byte, totalSectors*common.SectorSize)
	_, err := rand.Read(backingData)
	require.NoError(t, err, "failed to fill image with random bytes")
	return common.NewSectorStream(bytesextra.NewReadWriteSeeker(backingData)), backingData
}

func TestSectorStream__Read__Basic(t *testing.T) {
	device, rawData := newRandomSectorStream(t, 16)
	buffer := make([]byte, common.SectorSize)

	for i := common.PhysicalBlock(0); i < 16; i++ {
		err := device.ReadSector(i, buffer)
		require.NoErrorf(t, err, "failed to read sector %d of [0, 16)", i)

		start := common.SectorToFileOffset(i)
		assert.Truef(
			t,
			bytes.Equal(buffer, rawData[start:start+common.SectorSize]),
			"sector %d doesn't match the image",
			i,
		)
	}
}

// Reading past the end of the image is an I/O error, not a short success.
func TestSectorStream__Read__PastEnd(t *testing.T) {
	device, _ := newRandomSectorStream(t, 4)
	buffer := make([]byte, common.SectorSize)

	assert.NoError(t, device.ReadSector(3, buffer), "last sector should be readable")

	err := device.ReadSector(4, buffer)
	assert.ErrorIs(t, err, errors.ErrIOFailed)
}

func TestSectorStream__Read__WrongBufferSize(t *testing.T) {
	device, _ := newRandomSectorStream(t, 4)

	err := device.ReadSector(0, make([]byte, 100))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	err = device.WriteSector(0, make([]byte, common.SectorSize+1))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

// Write to a sector and then read back that same sector. You should always get
// back what you wrote, and neighboring sectors must be untouched.
func TestSectorStream__Write__Basic(t *testing.T) {
	device, rawData := newRandomSectorStream(t, 8)
	original := make([]byte, len(rawData))
	copy(original, rawData)

	writeBuffer := make([]byte, common.SectorSize)
	rand.Read(writeBuffer)

	require.NoError(t, device.WriteSector(5, writeBuffer))

	readBuffer := make([]byte, common.SectorSize)
	require.NoError(t, device.ReadSector(5, readBuffer))
	assert.Equal(t, writeBuffer, readBuffer, "read back different data")

	for i := common.PhysicalBlock(0); i < 8; i++ {
		if i == 5 {
			continue
		}
		require.NoError(t, device.ReadSector(i, readBuffer))
		start := common.SectorToFileOffset(i)
		assert.Equalf(
			t, original[start:start+common.SectorSize], readBuffer, "sector %d was modified", i)
	}
}
