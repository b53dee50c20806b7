// Package unixv6 implements the Unix V6 file system over a flat image of
// 512-byte sectors.
//
// # Layout
//
// Sector 0 is the boot sector; its first byte must be 107. Sector 1 is the
// superblock, which gives the location and size of the inode table and where
// the data sectors start. Inodes are 32 bytes, 16 per sector, and inode 1 is
// the root directory.
//
// A file of up to 8 sectors stores the sector numbers of its data directly in
// the inode's eight address slots. Larger files use the first seven slots to
// point to indirect sectors, each holding 256 sector numbers. Doubly-indirect
// addressing isn't supported, which caps files at 7 * 256 * 512 bytes.
//
// Directories are files made up of 16-byte entries: a 16-bit inode number and a
// name of up to 14 bytes, null-padded. An inode number of 0 marks an empty slot.
//
// # Allocation
//
// Neither free lists nor on-disk bitmaps are used. When the image is mounted,
// every inode is scanned and the sectors reachable from each allocated inode
// are marked in an in-memory bitmap. Nothing is ever freed.
package unixv6
