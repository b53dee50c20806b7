package common

import (
	"fmt"
	"io"

	"github.com/dargueta/u6fs/errors"
)

// SectorStream is an abstraction layer around a stream to make it look like a
// sector device, i.e. a file that can only be read from or written to one
// 512-byte sector at a time.
//
// There's no buffering or caching: every call goes straight to the stream.
type SectorStream struct {
	stream io.ReadWriteSeeker
}

func NewSectorStream(stream io.ReadWriteSeeker) *SectorStream {
	return &SectorStream{stream: stream}
}

// Stream returns the underlying stream.
func (device *SectorStream) Stream() io.ReadWriteSeeker {
	return device.stream
}

// SectorToFileOffset converts a sector number into a byte offset into the
// backing I/O stream.
func SectorToFileOffset(sector PhysicalBlock) int64 {
	return int64(sector) * SectorSize
}

// seekToSector positions the stream pointer at the byte offset where the given
// sector starts.
func (device *SectorStream) seekToSector(sector PhysicalBlock) error {
	offset := SectorToFileOffset(sector)
	_, err := device.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return errors.ErrIOFailed.Wrap(
			fmt.Errorf("seeking to sector %d (offset %d): %w", sector, offset, err))
	}
	return nil
}

func checkBufferSize(buffer []byte) error {
	if len(buffer) != SectorSize {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"sector buffer must be exactly %d bytes, got %d",
				SectorSize,
				len(buffer),
			),
		)
	}
	return nil
}

// ReadSector fills `buffer` with the contents of `sector`. `buffer` must be
// exactly one sector long. Reading fewer than [SectorSize] bytes, including
// running into the end of the image, is an I/O error.
func (device *SectorStream) ReadSector(sector PhysicalBlock, buffer []byte) error {
	err := checkBufferSize(buffer)
	if err != nil {
		return err
	}

	err = device.seekToSector(sector)
	if err != nil {
		return err
	}

	bytesRead, err := io.ReadFull(device.stream, buffer)
	if err != nil {
		return errors.ErrIOFailed.Wrap(
			fmt.Errorf(
				"short read of sector %d: got %d of %d bytes: %w",
				sector,
				bytesRead,
				SectorSize,
				err,
			),
		)
	}
	return nil
}

// WriteSector writes `data` to `sector`. `data` must be exactly one sector long.
func (device *SectorStream) WriteSector(sector PhysicalBlock, data []byte) error {
	err := checkBufferSize(data)
	if err != nil {
		return err
	}

	err = device.seekToSector(sector)
	if err != nil {
		return err
	}

	bytesWritten, err := device.stream.Write(data)
	if err != nil {
		return errors.ErrIOFailed.Wrap(
			fmt.Errorf("writing sector %d: %w", sector, err))
	}
	if bytesWritten != SectorSize {
		return errors.ErrIOFailed.WithMessage(
			fmt.Sprintf(
				"short write to sector %d: wrote %d of %d bytes",
				sector,
				bytesWritten,
				SectorSize,
			),
		)
	}
	return nil
}
