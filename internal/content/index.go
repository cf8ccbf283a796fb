package content

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/scmemory/internal/hash"
)

const (
	indexName    = "index.bin"
	indexMagic   = 0x49434353 // "SCCI"
	indexVersion = 1

	indexHeaderSize = 16
	indexEntrySize  = 8 + 4 + 4 + hash.DigestSize
)

// indexEntry is one persisted forward mapping.
type indexEntry struct {
	key    uint64
	gen    uint32
	size   uint32
	digest hash.Digest
}

// Layout:
//
//	Magic    (4 bytes)
//	Version  (4 bytes)
//	Checksum (4 bytes) - CRC32C of the entries
//	Count    (4 bytes)
//	Entries  (Count * 48 bytes): key u64, gen u32, size u32, digest [32]byte
func encodeIndex(entries []indexEntry) []byte {
	buf := make([]byte, indexHeaderSize+len(entries)*indexEntrySize)
	body := buf[indexHeaderSize:]

	for i, e := range entries {
		b := body[i*indexEntrySize:]
		binary.LittleEndian.PutUint64(b[0:8], e.key)
		binary.LittleEndian.PutUint32(b[8:12], e.gen)
		binary.LittleEndian.PutUint32(b[12:16], e.size)
		copy(b[16:16+hash.DigestSize], e.digest[:])
	}

	binary.LittleEndian.PutUint32(buf[0:4], indexMagic)
	binary.LittleEndian.PutUint32(buf[4:8], indexVersion)
	binary.LittleEndian.PutUint32(buf[8:12], hash.CRC32C(body))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(entries)))

	return buf
}

func decodeIndex(buf []byte) ([]indexEntry, error) {
	if len(buf) < indexHeaderSize {
		return nil, fmt.Errorf("%w: index of %d bytes", ErrCorrupt, len(buf))
	}

	if magic := binary.LittleEndian.Uint32(buf[0:4]); magic != indexMagic {
		return nil, fmt.Errorf("%w: index magic %x", ErrCorrupt, magic)
	}

	if v := binary.LittleEndian.Uint32(buf[4:8]); v != indexVersion {
		return nil, fmt.Errorf("%w: index version %d", ErrCorrupt, v)
	}

	sum := binary.LittleEndian.Uint32(buf[8:12])
	count := int(binary.LittleEndian.Uint32(buf[12:16]))
	body := buf[indexHeaderSize:]

	if len(body) != count*indexEntrySize {
		return nil, fmt.Errorf("%w: index length %d for %d entries", ErrCorrupt, len(body), count)
	}

	if hash.CRC32C(body) != sum {
		return nil, fmt.Errorf("%w: index checksum mismatch", ErrCorrupt)
	}

	entries := make([]indexEntry, count)
	for i := range entries {
		b := body[i*indexEntrySize:]
		entries[i].key = binary.LittleEndian.Uint64(b[0:8])
		entries[i].gen = binary.LittleEndian.Uint32(b[8:12])
		entries[i].size = binary.LittleEndian.Uint32(b[12:16])
		copy(entries[i].digest[:], b[16:16+hash.DigestSize])
	}

	return entries, nil
}
