package model

// AccessLevels packs a read level (low nibble) and a write level (high nibble).
type AccessLevels uint8

// Predefined levels.
const (
	AccessLevelsMin  AccessLevels = 0x00
	AccessLevelsFull AccessLevels = 0xff
)

// NewAccessLevels builds levels from separate read and write levels (0..15).
func NewAccessLevels(read, write uint8) AccessLevels {
	return AccessLevels((write&0x0f)<<4 | read&0x0f)
}

// Read returns the read level.
func (l AccessLevels) Read() uint8 { return uint8(l) & 0x0f }

// Write returns the write level.
func (l AccessLevels) Write() uint8 { return uint8(l) >> 4 }

// CanRead reports whether a holder of l may read an element protected by e.
func (l AccessLevels) CanRead(e AccessLevels) bool { return l.Read() >= e.Read() }

// CanWrite reports whether a holder of l may modify an element protected by e.
func (l AccessLevels) CanWrite(e AccessLevels) bool { return l.Write() >= e.Write() }
