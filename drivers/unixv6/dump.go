package unixv6

import (
	"crypto/sha256"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/errors"
	"github.com/gocarina/gocsv"
	"github.com/rodaine/table"
)

const (
	ScanFormatTable = "table"
	ScanFormatCSV   = "csv"
)

// PrintSuperblock writes the fields of the superblock to `w`.
func (fs *FileSystem) PrintSuperblock(w io.Writer) error {
	sb := &fs.superblock
	fields := []struct {
		name  string
		value uint16
	}{
		{"s_isize", sb.NumInodeSectors},
		{"s_fsize", sb.TotalSectors},
		{"s_fbmsize", sb.FreeBitmapSectors},
		{"s_ibmsize", sb.InodeBitmapSectors},
		{"s_inode_start", sb.InodeStart},
		{"s_block_start", sb.BlockStart},
		{"s_fbm_start", sb.FreeBitmapStart},
		{"s_ibm_start", sb.InodeBitmapStart},
		{"s_flock", uint16(sb.FLock)},
		{"s_ilock", uint16(sb.ILock)},
		{"s_fmod", uint16(sb.FModFlags)},
		{"s_ronly", uint16(sb.ReadOnly)},
	}

	_, err := fmt.Fprintln(w, "**********FS SUPERBLOCK START**********")
	if err != nil {
		return err
	}
	for _, field := range fields {
		_, err = fmt.Fprintf(w, "%-20s: %d\n", field.name, field.value)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%-20s: [%d] %d\n", "s_time", sb.ModifiedTime[0], sb.ModifiedTime[1])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, "**********FS SUPERBLOCK END**********")
	return err
}

// PrintInode writes the fields of an inode to `w`.
func PrintInode(w io.Writer, inode *Inode) error {
	_, err := fmt.Fprintf(
		w,
		"**********FS INODE START**********\n"+
			"i_mode: %d\n"+
			"i_nlink: %d\n"+
			"i_uid: %d\n"+
			"i_gid: %d\n"+
			"i_size0: %d\n"+
			"i_size1: %d\n"+
			"size: %d\n"+
			"**********FS INODE END************\n",
		inode.Flags,
		inode.NLink,
		inode.UID,
		inode.GID,
		inode.Size0,
		inode.Size1,
		inode.Size(),
	)
	return err
}

// CatFirstSector prints an inode followed by the first sector of its contents.
// Directories are only identified as such.
func (fs *FileSystem) CatFirstSector(w io.Writer, inumber Inumber) error {
	file, err := fs.OpenFile(inumber)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "\nPrinting inode #%d:\n", inumber)
	if err != nil {
		return err
	}
	err = PrintInode(w, &file.inode)
	if err != nil {
		return err
	}

	if file.inode.IsDir() {
		_, err = fmt.Fprintln(w, "which is a directory.")
		return err
	}

	buffer := make([]byte, common.SectorSize)
	bytesRead, err := file.ReadBlock(buffer)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(
		w, "the first sector of data of which contains:\n%s\n----\n", buffer[:bytesRead])
	return err
}

// PrintSHAFile writes the SHA-256 digest of a file's contents, or "DIR" for a
// directory. Unallocated inodes print nothing.
func (fs *FileSystem) PrintSHAFile(w io.Writer, inumber Inumber) error {
	file, err := fs.OpenFile(inumber)
	if stderrors.Is(err, errors.ErrUnallocatedInode) {
		return nil
	} else if err != nil {
		return err
	}

	if file.inode.IsDir() {
		_, err = fmt.Fprintf(w, "SHA inode %d: DIR\n", inumber)
		return err
	}

	contents, err := file.ReadAll()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "SHA inode %d: %x\n", inumber, sha256.Sum256(contents))
	return err
}

// PrintSHAAllFiles calls [FileSystem.PrintSHAFile] on every inode.
func (fs *FileSystem) PrintSHAAllFiles(w io.Writer) error {
	_, err := fmt.Fprintln(w, "Listing inodes SHA")
	if err != nil {
		return err
	}
	for i := uint(1); i < fs.NumInodes(); i++ {
		err = fs.PrintSHAFile(w, Inumber(i))
		if err != nil {
			return err
		}
	}
	return nil
}

// PrintBitmaps dumps the inode and sector allocation bitmaps.
func (fs *FileSystem) PrintBitmaps(w io.Writer) error {
	err := fs.checkMounted()
	if err != nil {
		return err
	}
	err = fs.inodeBitmap.Print(w, "INODES")
	if err != nil {
		return err
	}
	return fs.sectorBitmap.Print(w, "SECTORS")
}

type inodeScanRow struct {
	Inumber Inumber `csv:"inode"`
	Kind    string  `csv:"kind"`
	Size    int64   `csv:"size"`
}

// ScanAndPrint lists the inodes up to the first unallocated one, either as a
// text table ([ScanFormatTable]) or as CSV ([ScanFormatCSV]).
func (fs *FileSystem) ScanAndPrint(w io.Writer, format string) error {
	var rows []inodeScanRow
	err := fs.ScanInodes(func(inumber Inumber, inode *Inode) error {
		kind := "FIL"
		if inode.IsDir() {
			kind = "DIR"
		}
		rows = append(rows, inodeScanRow{Inumber: inumber, Kind: kind, Size: inode.Size()})
		return nil
	})
	if err != nil {
		return err
	}

	switch format {
	case ScanFormatTable:
		tbl := table.New("inode", "kind", "size").WithWriter(w)
		for _, row := range rows {
			tbl.AddRow(row.Inumber, row.Kind, row.Size)
		}
		tbl.Print()
		return nil
	case ScanFormatCSV:
		return gocsv.Marshal(rows, w)
	default:
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"unknown format %q, expected %q or %q",
				format,
				ScanFormatTable,
				ScanFormatCSV,
			),
		)
	}
}

// PrintTree writes "DIR <path>" or "FIL <path>" for `inumber` and everything
// beneath it. See [FileSystem.Walk] for how paths are built from `prefix`.
func (fs *FileSystem) PrintTree(w io.Writer, inumber Inumber, prefix string) error {
	return fs.Walk(inumber, prefix, func(entryPath string, _ Inumber, isDir bool) error {
		kind := "FIL"
		if isDir {
			kind = "DIR"
		}
		_, err := fmt.Fprintf(w, "%s %s\n", kind, entryPath)
		return err
	})
}
