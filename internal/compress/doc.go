// Package compress implements the block compression used for checkpoints.
//
// A block is framed as [UncompressedSize uint32][CompressedSize uint32][Data...],
// little endian. CompressedSize == 0 marks a block stored verbatim, which is
// what Encode falls back to when compression does not pay off.
package compress
