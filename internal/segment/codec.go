package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/scmemory/internal/hash"
	"github.com/hupe1980/scmemory/model"
)

const (
	blockMagic   = 0x47534353 // "SCSG"
	blockVersion = 1
)

// Header is the decoded segment header.
type Header struct {
	ID       uint32
	Clock    uint32
	Live     uint32
	Checksum uint32
}

// MarshalBinary encodes the segment into a block of BlockSize bytes.
// clock is the generation clock of the owning engine.
func (s *Segment) MarshalBinary(clock uint32) []byte {
	buf := make([]byte, BlockSize)

	body := buf[HeaderSize:]
	for i := range s.slots {
		putRecord(body[i*RecordSize:(i+1)*RecordSize], &s.slots[i])
	}

	binary.LittleEndian.PutUint32(buf[0:4], blockMagic)
	binary.LittleEndian.PutUint16(buf[4:6], blockVersion)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint32(buf[8:12], s.id)
	binary.LittleEndian.PutUint32(buf[12:16], clock)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(s.live))
	binary.LittleEndian.PutUint32(buf[20:24], hash.CRC32C(body))

	return buf
}

// ReadHeader validates and decodes the header of block.
func ReadHeader(block []byte) (Header, error) {
	if len(block) != BlockSize {
		return Header{}, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(block), BlockSize)
	}

	if magic := binary.LittleEndian.Uint32(block[0:4]); magic != blockMagic {
		return Header{}, fmt.Errorf("%w: %x", ErrInvalidMagic, magic)
	}

	if v := binary.LittleEndian.Uint16(block[4:6]); v != blockVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrIncompatibleVersion, v)
	}

	return Header{
		ID:       binary.LittleEndian.Uint32(block[8:12]),
		Clock:    binary.LittleEndian.Uint32(block[12:16]),
		Live:     binary.LittleEndian.Uint32(block[16:20]),
		Checksum: binary.LittleEndian.Uint32(block[20:24]),
	}, nil
}

// Decode reconstructs the segment stored at index id.
func Decode(id uint32, block []byte) (*Segment, Header, error) {
	h, err := ReadHeader(block)
	if err != nil {
		return nil, h, err
	}

	if h.ID != id {
		return nil, h, fmt.Errorf("%w: header %d, file %d", ErrIDMismatch, h.ID, id)
	}

	body := block[HeaderSize:]
	if sum := hash.CRC32C(body); sum != h.Checksum {
		return nil, h, fmt.Errorf("%w: segment %d", ErrChecksumMismatch, id)
	}

	s := &Segment{
		id:    id,
		slots: make([]Slot, Capacity),
		free:  roaring.New(),
	}

	for i := range s.slots {
		slot := &s.slots[i]
		readRecord(body[i*RecordSize:(i+1)*RecordSize], slot)

		if !slot.Live() {
			s.free.Add(uint32(i))
			continue
		}

		if slot.Gen == 0 || !slot.Type.Valid() {
			return nil, h, fmt.Errorf("%w: segment %d offset %d", ErrInvalidRecord, id, i)
		}

		s.live++
	}

	if uint32(s.live) != h.Live {
		return nil, h, fmt.Errorf("%w: segment %d live count %d, header %d", ErrInvalidRecord, id, s.live, h.Live)
	}

	return s, h, nil
}

func putRecord(b []byte, s *Slot) {
	binary.LittleEndian.PutUint16(b[0:2], uint16(s.Type))
	b[2] = byte(s.Access)
	b[3] = s.State
	binary.LittleEndian.PutUint32(b[4:8], s.Gen)
	putAddr(b[8:20], s.Begin)
	putAddr(b[20:32], s.End)
}

func readRecord(b []byte, s *Slot) {
	s.Type = model.Type(binary.LittleEndian.Uint16(b[0:2]))
	s.Access = model.AccessLevels(b[2])
	s.State = b[3]
	s.Gen = binary.LittleEndian.Uint32(b[4:8])
	s.Begin = readAddr(b[8:20])
	s.End = readAddr(b[20:32])
}

func putAddr(b []byte, a model.Addr) {
	binary.LittleEndian.PutUint32(b[0:4], a.Seg)
	binary.LittleEndian.PutUint32(b[4:8], a.Offset)
	binary.LittleEndian.PutUint32(b[8:12], a.Gen)
}

func readAddr(b []byte) model.Addr {
	return model.Addr{
		Seg:    binary.LittleEndian.Uint32(b[0:4]),
		Offset: binary.LittleEndian.Uint32(b[4:8]),
		Gen:    binary.LittleEndian.Uint32(b[8:12]),
	}
}
