package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ContentHash computes the xxHash64 of data and returns a hex string
// truncated to the given length. Preview handles, cache keys and output
// filenames all use 16 hex chars (64 bits).
func ContentHash(data []byte, hexLen int) string {
	return truncate(xxhash.Sum64(data), hexLen)
}

// ContentHashReader computes xxHash64 from a reader, streaming.
func ContentHashReader(r io.Reader, hexLen int) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return truncate(h.Sum64(), hexLen), nil
}

// Key hashes data together with extra discriminators (sizes, versions)
// into a namespaced key such as "analysis:1a2b3c4d5e6f7a8b".
func Key(prefix string, data []byte, parts ...any) string {
	h := xxhash.New()
	_, _ = h.Write(data)
	for _, p := range parts {
		_, _ = fmt.Fprintf(h, "|%v", p)
	}
	return prefix + ":" + truncate(h.Sum64(), 16)
}

func truncate(v uint64, hexLen int) string {
	full := hex.EncodeToString(binary.BigEndian.AppendUint64(nil, v))
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}
