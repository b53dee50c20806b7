package testing

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/drivers/unixv6"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// CreateRandomImage creates an image with the given number of sectors, filled
// with random bytes. It is guaranteed to either return a valid slice or fail
// the test and abort.
func CreateRandomImage(t *testing.T, totalSectors uint) []byte {
	backingData := make([]byte, totalSectors*common.SectorSize)

	_, err := rand.Read(backingData)
	require.NoErrorf(
		t, err, "failed to initialize %d sectors with random bytes", totalSectors)
	return backingData
}

// CreateFormattedImage formats an in-memory image with the given geometry and
// returns its backing bytes. Data sectors are filled with random garbage so
// that tests can't rely on freshly-allocated sectors being zeroed.
//
// Writes through a stream over the returned slice are visible in the slice.
// The size is fixed, so writing past the end of the image is an error.
func CreateFormattedImage(t *testing.T, totalSectors, inodeSectors uint) []byte {
	imageBytes := CreateRandomImage(t, totalSectors)
	stream := bytesextra.NewReadWriteSeeker(imageBytes)

	err := unixv6.Format(
		stream,
		unixv6.FormatOptions{TotalSectors: totalSectors, InodeSectors: inodeSectors},
	)
	require.NoError(t, err, "formatting failed")
	return imageBytes
}

// MountImageBytes mounts the file system stored in `imageBytes`. The mount
// works on the slice directly; it's not copied.
func MountImageBytes(t *testing.T, imageBytes []byte) *unixv6.FileSystem {
	fs, err := unixv6.MountImage(bytesextra.NewReadWriteSeeker(imageBytes))
	require.NoError(t, err, "mounting failed")
	return fs
}

// MountFormattedImage formats a new in-memory image and mounts it. The backing
// bytes are returned too, so the test can remount them later.
func MountFormattedImage(
	t *testing.T, totalSectors, inodeSectors uint,
) (*unixv6.FileSystem, []byte) {
	imageBytes := CreateFormattedImage(t, totalSectors, inodeSectors)
	return MountImageBytes(t, imageBytes), imageBytes
}

// Remount unmounts `fs` and mounts `imageBytes` again, forcing all state to be
// reloaded from the image.
func Remount(t *testing.T, fs *unixv6.FileSystem, imageBytes []byte) *unixv6.FileSystem {
	require.NoError(t, fs.Unmount(), "unmounting failed")
	return MountImageBytes(t, imageBytes)
}

// NewStream returns a fixed-size read-write stream over `data`.
func NewStream(data []byte) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(data)
}
