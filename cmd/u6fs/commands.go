package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dargueta/u6fs/drivers/unixv6"
	"github.com/dargueta/u6fs/drivers/unixv6/fusefs"
	"github.com/dargueta/u6fs/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type commandSet struct {
	logger *logrus.Logger
}

// diskAction runs a command against a mounted image. `c.Args()` still includes
// the image path as the first argument.
type diskAction func(c *cli.Context, fs *unixv6.FileSystem, logger *logrus.Entry) error

// fail logs `err` and converts it to an exit status of 1 + errno.
func fail(logger *logrus.Entry, err error) error {
	errno := errors.ErrnoOf(err)
	logger.WithField("errno", int(errno)).Error(err.Error())
	return cli.Exit("", 1+int(errno))
}

func checkArgCount(c *cli.Context, expected int) error {
	if c.NArg() != expected {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"expected %d arguments (%s), got %d",
				expected,
				c.Command.ArgsUsage,
				c.NArg(),
			),
		)
	}
	return nil
}

// withDisk wraps an action so that the image named by the first argument is
// mounted before it runs and unmounted afterwards. `numArgs` is the number of
// arguments the command takes after the image path.
func (cmds *commandSet) withDisk(numArgs int, action diskAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		logger := cmds.logger.WithFields(logrus.Fields{
			"disk":    c.Args().First(),
			"command": c.Command.Name,
		})

		err := checkArgCount(c, numArgs+1)
		if err != nil {
			return fail(logger, err)
		}

		logger.Debug("mounting")
		fs, err := unixv6.Mount(c.Args().First())
		if err != nil {
			return fail(logger, err)
		}

		err = action(c, fs, logger)
		unmountErr := fs.Unmount()
		if err != nil {
			return fail(logger, err)
		}
		if unmountErr != nil {
			return fail(logger, unmountErr)
		}
		logger.Debug("unmounted")
		return nil
	}
}

func printSuperblock(c *cli.Context, fs *unixv6.FileSystem, _ *logrus.Entry) error {
	return fs.PrintSuperblock(c.App.Writer)
}

func scanInodes(c *cli.Context, fs *unixv6.FileSystem, _ *logrus.Entry) error {
	return fs.ScanAndPrint(c.App.Writer, c.String("format"))
}

func catFirstSector(c *cli.Context, fs *unixv6.FileSystem, _ *logrus.Entry) error {
	inumber, err := strconv.ParseUint(c.Args().Get(1), 10, 16)
	if err != nil {
		return errors.ErrInvalidArgument.Wrap(err)
	}
	return fs.CatFirstSector(c.App.Writer, unixv6.Inumber(inumber))
}

func printSHAFiles(c *cli.Context, fs *unixv6.FileSystem, _ *logrus.Entry) error {
	return fs.PrintSHAAllFiles(c.App.Writer)
}

func printTree(c *cli.Context, fs *unixv6.FileSystem, _ *logrus.Entry) error {
	return fs.PrintTree(c.App.Writer, unixv6.RootInumber, "")
}

func printBitmaps(c *cli.Context, fs *unixv6.FileSystem, _ *logrus.Entry) error {
	return fs.PrintBitmaps(c.App.Writer)
}

func makeDirectory(c *cli.Context, fs *unixv6.FileSystem, logger *logrus.Entry) error {
	inumber, err := fs.CreateEntry(c.Args().Get(1), unixv6.DefaultDirectoryMode)
	if err != nil {
		return err
	}
	logger.WithField("inode", inumber).Debug("created directory")
	return nil
}

func addFile(c *cli.Context, fs *unixv6.FileSystem, logger *logrus.Entry) error {
	localPath := c.Args().Get(2)
	data, err := os.ReadFile(localPath)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}

	err = fs.AddFile(c.Args().Get(1), unixv6.DefaultFileMode, data)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"source": localPath, "bytes": len(data)}).Debug("added file")
	return nil
}

func (cmds *commandSet) formatImage(c *cli.Context) error {
	logger := cmds.logger.WithFields(logrus.Fields{
		"disk":    c.Args().First(),
		"command": c.Command.Name,
	})

	err := checkArgCount(c, 1)
	if err != nil {
		return fail(logger, err)
	}

	image, err := os.OpenFile(c.Args().First(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fail(logger, errors.ErrIOFailed.Wrap(err))
	}

	options := unixv6.FormatOptions{
		TotalSectors: c.Uint("sectors"),
		InodeSectors: c.Uint("inode-sectors"),
	}
	err = unixv6.Format(image, options)
	closeErr := image.Close()
	if err != nil {
		return fail(logger, err)
	}
	if closeErr != nil {
		return fail(logger, errors.ErrIOFailed.Wrap(closeErr))
	}

	logger.WithFields(logrus.Fields{
		"sectors":       options.TotalSectors,
		"inode_sectors": options.InodeSectors,
	}).Info("formatted")
	return nil
}

// serveFUSE blocks until the mount point is unmounted, either externally or
// because the process was interrupted.
func serveFUSE(c *cli.Context, fs *unixv6.FileSystem, logger *logrus.Entry) error {
	mountpoint := c.Args().Get(1)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case sig := <-signals:
			logger.WithField("signal", sig.String()).Info("unmounting")
			err := fusefs.Unmount(mountpoint)
			if err != nil {
				logger.WithError(err).Error("unmount failed")
			}
		case <-done:
		}
	}()

	return fusefs.Serve(mountpoint, fs, logger)
}
