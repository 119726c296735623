// Package artifact contains the container format shared by all persisted derived data:
// a small versioned header followed by an lzf-compressed payload and a checksum.
//
// Each artifact kind chooses its own four byte magic and format version. Reading a blob
// whose magic or version differs from what the caller expects is an error, as is a blob
// whose payload checksum does not match, so that a truncated or foreign file is never
// mistaken for a valid cache entry.
package artifact

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"io"
	"os"

	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"

	"go.viam.com/viewpoint/utils"
)

const (
	flagCompressed = 1 << 0
	headerSize     = 4 + 2 + 1 + 1 + 8 + 8 + 8
)

// lzf cannot expand a stream by more than this factor.
const maxExpansion = 128

// ErrCorrupt is returned when a blob fails its integrity checks.
var ErrCorrupt = errors.New("artifact is corrupt")

// Format identifies one kind of artifact.
type Format struct {
	Magic   [4]byte
	Version uint16
}

// NewFormat returns the format with the given magic, which must be four bytes long.
func NewFormat(magic string, version uint16) Format {
	if len(magic) != 4 {
		panic(errors.Errorf("artifact magic must be 4 bytes, got %q", magic))
	}
	var f Format
	copy(f.Magic[:], magic)
	f.Version = version
	return f
}

func (f Format) String() string {
	return string(f.Magic[:])
}

// Encode writes payload to w in the container format. The payload is lzf-compressed
// unless compression would not make it smaller.
func (f Format) Encode(w io.Writer, payload []byte) error {
	stored := payload
	var flags uint8
	if len(payload) > 0 {
		compressed := make([]byte, len(payload))
		n, err := lzf.Compress(payload, compressed)
		if err == nil && n > 0 && n < len(payload) {
			stored = compressed[:n]
			flags |= flagCompressed
		}
	}

	sum := fnv.New64a()
	//nolint:errcheck
	sum.Write(payload)

	header := make([]byte, headerSize)
	copy(header[0:4], f.Magic[:])
	binary.LittleEndian.PutUint16(header[4:6], f.Version)
	header[6] = flags
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(payload)))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(stored)))
	binary.LittleEndian.PutUint64(header[24:32], sum.Sum64())
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(stored)
	return err
}

// Decode reads one blob of this format from r and returns its uncompressed payload.
func (f Format) Decode(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "reading %s header: %v", f, err)
	}
	if !bytes.Equal(header[0:4], f.Magic[:]) {
		return nil, errors.Errorf("not a %s artifact (magic %q)", f, header[0:4])
	}
	if version := binary.LittleEndian.Uint16(header[4:6]); version != f.Version {
		return nil, errors.Errorf("unsupported %s artifact version %d, expected %d", f, version, f.Version)
	}
	flags := header[6]
	rawLen := binary.LittleEndian.Uint64(header[8:16])
	storedLen := binary.LittleEndian.Uint64(header[16:24])
	checksum := binary.LittleEndian.Uint64(header[24:32])

	stored, err := io.ReadAll(io.LimitReader(r, int64(storedLen)))
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "reading %s payload: %v", f, err)
	}
	if uint64(len(stored)) != storedLen {
		return nil, errors.Wrapf(ErrCorrupt, "%s payload truncated at %d of %d bytes", f, len(stored), storedLen)
	}

	payload := stored
	if flags&flagCompressed != 0 {
		if rawLen > storedLen*maxExpansion {
			return nil, errors.Wrapf(ErrCorrupt, "%s payload claims %d bytes from %d compressed", f, rawLen, storedLen)
		}
		payload = make([]byte, rawLen)
		n, err := lzf.Decompress(stored, payload)
		if err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "decompressing %s payload: %v", f, err)
		}
		if uint64(n) != rawLen {
			return nil, errors.Wrapf(ErrCorrupt, "%s payload decompressed to %d bytes, expected %d", f, n, rawLen)
		}
	} else if storedLen != rawLen {
		return nil, errors.Wrapf(ErrCorrupt, "%s payload has %d bytes, expected %d", f, storedLen, rawLen)
	}

	sum := fnv.New64a()
	//nolint:errcheck
	sum.Write(payload)
	if sum.Sum64() != checksum {
		return nil, errors.Wrapf(ErrCorrupt, "%s payload checksum mismatch", f)
	}
	return payload, nil
}

// WriteFile atomically replaces the file at path with payload in this format.
func (f Format) WriteFile(path string, payload []byte) error {
	if err := utils.WriteFileAtomic(path, func(w io.Writer) error {
		return f.Encode(w, payload)
	}); err != nil {
		return errors.Wrapf(err, "writing %s artifact %q", f, path)
	}
	return nil
}

// ReadFile reads and verifies the blob stored at path.
func (f Format) ReadFile(path string) ([]byte, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	payload, err := f.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "reading artifact %q", path)
	}
	return payload, nil
}
