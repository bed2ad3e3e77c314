// Package checkpoint persists the state of a clustering run so it can be
// inspected or resumed.
//
// A checkpoint holds the run parameters and a store.Snapshot: the committed
// clusters, the remaining active points as a portable roaring bitmap and the
// enumerator cursor. It is encoded with a codec.Codec, block compressed and
// written to a blobstore.BlobStore:
//
//	checkpoints/<run>/<iteration>.ckpt
//	checkpoints/<run>/CURRENT
//
// CURRENT names the latest checkpoint of the run and is advanced with a
// compare-and-swap through a blobstore.Pointer, so a second writer for the
// same run fails with blobstore.ErrConflict instead of interleaving.
//
// # File format
//
//	[magic "CKPT"][version uint8][compression uint8][codec len uint8][codec name]
//	[crc32c uint32][block]
//
// The checksum covers the compressed block. Integers are little endian.
package checkpoint
