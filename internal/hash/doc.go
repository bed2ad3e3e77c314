// Package hash provides the CRC32-Castagnoli checksum that guards checkpoint
// blocks. The same polynomial is used for S3 upload checksums, so a block can
// be verified end to end with one function.
package hash
