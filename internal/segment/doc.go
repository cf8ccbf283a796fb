// Package segment implements the fixed-capacity slot page that stores
// elements.
//
// A segment holds Capacity slots. Every slot is a 32-byte record:
//
//	Type   (2 bytes)  sc-type bitmask
//	Access (1 byte)   read/write access levels
//	State  (1 byte)   live flag
//	Gen    (4 bytes)  generation of the occupant
//	Begin  (12 bytes) arc source address (Seg, Offset, Gen)
//	End    (12 bytes) arc target address
//
// On disk a segment is one block of exactly BlockSize bytes: a 32-byte
// header followed by the records.
//
//	Magic    (4 bytes) - 0x47534353 ("SCSG")
//	Version  (2 bytes)
//	Flags    (2 bytes)
//	ID       (4 bytes) - segment index, equals the file name
//	Clock    (4 bytes) - generation clock at save time
//	Live     (4 bytes) - number of live slots
//	Checksum (4 bytes) - CRC32C of the record area
//	Reserved (8 bytes)
//
// Free slots are tracked in a roaring bitmap, so allocation always returns
// the lowest free offset. Adjacency is not persisted; the engine rebuilds it
// from arc endpoints after load.
package segment
