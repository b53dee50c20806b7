package main

import (
	"fmt"
	"os"

	"github.com/dargueta/u6fs/drivers/unixv6"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %s\n", err.Error())
		os.Exit(1)
	}
}

func newApp() *cli.App {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	commands := &commandSet{logger: logger}

	return &cli.App{
		Name:  "u6fs",
		Usage: "Inspect and modify Unix V6 disk images",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "log debugging information",
				EnvVars: []string{"U6FS_VERBOSE"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetOutput(c.App.ErrWriter)
			if c.Bool("verbose") {
				logger.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "sb",
				Usage:     "Print the superblock",
				ArgsUsage: "DISK",
				Action:    commands.withDisk(0, printSuperblock),
			},
			{
				Name:      "inode",
				Usage:     "List inodes up to the first unallocated one",
				ArgsUsage: "DISK",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Usage:   fmt.Sprintf("%q or %q", unixv6.ScanFormatTable, unixv6.ScanFormatCSV),
						Value:   unixv6.ScanFormatTable,
						EnvVars: []string{"U6FS_INODE_FORMAT"},
					},
				},
				Action: commands.withDisk(0, scanInodes),
			},
			{
				Name:      "cat1",
				Usage:     "Print an inode and the first sector of its contents",
				ArgsUsage: "DISK INODE",
				Action:    commands.withDisk(1, catFirstSector),
			},
			{
				Name:      "shafiles",
				Usage:     "Print the SHA-256 digest of every file",
				ArgsUsage: "DISK",
				Action:    commands.withDisk(0, printSHAFiles),
			},
			{
				Name:      "tree",
				Usage:     "Print the directory tree",
				ArgsUsage: "DISK",
				Action:    commands.withDisk(0, printTree),
			},
			{
				Name:      "bm",
				Usage:     "Print the inode and sector allocation bitmaps",
				ArgsUsage: "DISK",
				Action:    commands.withDisk(0, printBitmaps),
			},
			{
				Name:      "mkdir",
				Usage:     "Create a directory",
				ArgsUsage: "DISK PATH",
				Action:    commands.withDisk(1, makeDirectory),
			},
			{
				Name:      "add",
				Usage:     "Copy a local file into the image",
				ArgsUsage: "DISK PATH LOCAL_FILE",
				Action:    commands.withDisk(2, addFile),
			},
			{
				Name:      "format",
				Usage:     "Create or wipe an image",
				ArgsUsage: "DISK",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:    "sectors",
						Usage:   "total size of the image, in sectors",
						Value:   1024,
						EnvVars: []string{"U6FS_SECTORS"},
					},
					&cli.UintFlag{
						Name:    "inode-sectors",
						Usage:   fmt.Sprintf("sectors in the inode table (%d inodes each)", unixv6.InodesPerSector),
						Value:   32,
						EnvVars: []string{"U6FS_INODE_SECTORS"},
					},
				},
				Action: commands.formatImage,
			},
			{
				Name:      "fuse",
				Usage:     "Mount the image read-only, until interrupted",
				ArgsUsage: "DISK MOUNTPOINT",
				Action:    commands.withDisk(1, serveFUSE),
			},
		},
	}
}
