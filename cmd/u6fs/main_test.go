package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dargueta/u6fs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runApp runs the CLI with the given arguments and returns what it wrote to
// stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	// Don't let failures call os.Exit().
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"u6fs"}, args...))
	return stdout.String(), err
}

func requireExitCode(t *testing.T, err error, expected errors.Errno) {
	require.Error(t, err)
	exitErr, ok := err.(cli.ExitCoder)
	require.Truef(t, ok, "error isn't an exit code: %v", err)
	assert.Equal(t, 1+int(expected), exitErr.ExitCode())
}

func newFormattedDisk(t *testing.T) string {
	diskPath := filepath.Join(t.TempDir(), "disk.uv6")
	_, err := runApp(t, "format", "--sectors", "128", "--inode-sectors", "2", diskPath)
	require.NoError(t, err, "formatting failed")
	return diskPath
}

func TestFormat__CreatesImage(t *testing.T) {
	diskPath := newFormattedDisk(t)

	info, err := os.Stat(diskPath)
	require.NoError(t, err)
	assert.EqualValues(t, 128*512, info.Size())

	output, err := runApp(t, "sb", diskPath)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^s_fsize\s+: 128$`, output)
}

func TestFormat__InvalidGeometry(t *testing.T) {
	diskPath := filepath.Join(t.TempDir(), "disk.uv6")
	_, err := runApp(t, "format", "--sectors", "3", "--inode-sectors", "2", diskPath)
	requireExitCode(t, err, errors.EINVAL)
}

func TestMkdirAddAndTree(t *testing.T) {
	diskPath := newFormattedDisk(t)
	localFile := filepath.Join(t.TempDir(), "local.txt")
	require.NoError(t, os.WriteFile(localFile, []byte("hello"), 0o600))

	_, err := runApp(t, "mkdir", diskPath, "/src")
	require.NoError(t, err)
	_, err = runApp(t, "add", diskPath, "/src/hello.txt", localFile)
	require.NoError(t, err)

	output, err := runApp(t, "tree", diskPath)
	require.NoError(t, err)
	assert.Equal(t, "DIR \nDIR /src\nFIL /src/hello.txt\n", output)

	output, err = runApp(t, "inode", "--format", "csv", diskPath)
	require.NoError(t, err)
	assert.Equal(t, "inode,kind,size\n1,DIR,16\n2,DIR,16\n3,FIL,5\n", output)

	output, err = runApp(t, "cat1", diskPath, "3")
	require.NoError(t, err)
	assert.Contains(t, output, "hello\n----\n")

	output, err = runApp(t, "shafiles", diskPath)
	require.NoError(t, err)
	assert.Contains(t, output, "SHA inode 2: DIR\n")

	output, err = runApp(t, "bm", diskPath)
	require.NoError(t, err)
	assert.Contains(t, output, "BitMap Block SECTORS START")
}

func TestMkdir__AlreadyExists(t *testing.T) {
	diskPath := newFormattedDisk(t)

	_, err := runApp(t, "mkdir", diskPath, "/src")
	require.NoError(t, err)
	_, err = runApp(t, "mkdir", diskPath, "/src")
	requireExitCode(t, err, errors.EEXIST)
}

func TestCommand__MissingDisk(t *testing.T) {
	_, err := runApp(t, "sb", filepath.Join(t.TempDir(), "nope.uv6"))
	requireExitCode(t, err, errors.ENOENT)
}

func TestCommand__WrongArgumentCount(t *testing.T) {
	diskPath := newFormattedDisk(t)

	_, err := runApp(t, "cat1", diskPath)
	requireExitCode(t, err, errors.EINVAL)
}

func TestCat1__BadInodeNumber(t *testing.T) {
	diskPath := newFormattedDisk(t)

	_, err := runApp(t, "cat1", diskPath, "abc")
	requireExitCode(t, err, errors.EINVAL)

	_, err = runApp(t, "cat1", diskPath, "0")
	requireExitCode(t, err, errors.ERANGE)
}
