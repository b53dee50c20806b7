package fusefs

import (
	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dargueta/u6fs"
	"github.com/dargueta/u6fs/errors"
	"github.com/sirupsen/logrus"
)

// Serve mounts `driver` read-only at `mountpoint` and answers requests until
// the file system is unmounted, e.g. with [Unmount] or `fusermount -u`.
func Serve(mountpoint string, driver u6fs.ReadingDriver, logger *logrus.Entry) error {
	logger = logger.WithField("mountpoint", mountpoint)

	conn, err := fuse.Mount(
		mountpoint,
		fuse.ReadOnly(),
		fuse.FSName("u6fs"),
		fuse.Subtype("u6fs"),
	)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	defer conn.Close()

	logger.Info("serving")
	err = fs.Serve(conn, New(driver, logger))
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	logger.Info("unmounted")
	return nil
}

// Unmount asks the kernel to detach the file system at `mountpoint`, which
// makes a running [Serve] return.
func Unmount(mountpoint string) error {
	err := fuse.Unmount(mountpoint)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	return nil
}
