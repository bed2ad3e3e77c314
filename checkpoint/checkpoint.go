package checkpoint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/cash/codec"
	"github.com/hupe1980/cash/internal/compress"
	"github.com/hupe1980/cash/internal/conv"
	"github.com/hupe1980/cash/internal/hash"
	"github.com/hupe1980/cash/store"
)

var (
	// ErrCorrupt is returned for data that is not a valid checkpoint.
	ErrCorrupt = errors.New("checkpoint: corrupt")

	// ErrUnknownCodec is returned when a checkpoint names a codec that is not available.
	ErrUnknownCodec = errors.New("checkpoint: unknown codec")
)

const (
	magic   = "CKPT"
	version = 1
)

// Checkpoint is the persisted state of a run after an iteration.
type Checkpoint struct {
	RunID     string         `json:"run_id" msgpack:"run_id"`
	Iteration int            `json:"iteration" msgpack:"iteration"`
	Eps       float64        `json:"eps" msgpack:"eps"`
	MinPts    int            `json:"min_pts" msgpack:"min_pts"`
	CreatedAt time.Time      `json:"created_at" msgpack:"created_at"`
	Snapshot  store.Snapshot `json:"snapshot" msgpack:"snapshot"`
}

// Encode writes cp to w.
func Encode(w io.Writer, cp *Checkpoint, c codec.Codec, ct compress.Type) error {
	if c == nil {
		c = codec.Default
	}
	name := c.Name()
	nameLen, err := conv.IntToUint8(len(name))
	if err != nil {
		return fmt.Errorf("checkpoint: codec name %q: %w", name, err)
	}

	payload, err := c.Marshal(cp)
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	block, err := compress.Encode(payload, ct)
	if err != nil {
		return fmt.Errorf("checkpoint: compress: %w", err)
	}

	header := make([]byte, 0, len(magic)+3+len(name)+4)
	header = append(header, magic...)
	header = append(header, version, byte(ct), nameLen)
	header = append(header, name...)
	header = binary.LittleEndian.AppendUint32(header, hash.CRC32C(block))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(block)
	return err
}

// Decode reads a checkpoint written by Encode.
func Decode(r io.Reader) (*Checkpoint, error) {
	fixed := make([]byte, len(magic)+3)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if string(fixed[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := fixed[len(magic)]; v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	ct := compress.Type(fixed[len(magic)+1])

	rest := make([]byte, int(fixed[len(magic)+2])+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	name := string(rest[:len(rest)-4])
	sum := binary.LittleEndian.Uint32(rest[len(rest)-4:])

	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	block, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if hash.CRC32C(block) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	payload, err := compress.Decode(block, ct)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	cp := &Checkpoint{}
	if err := c.Unmarshal(payload, cp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return cp, nil
}
