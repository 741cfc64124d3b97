package wire

import "time"

// windowsEpochOffset100ns is the number of 100ns ticks between the Windows
// epoch (1601-01-01) and the Unix epoch (1970-01-01).
const windowsEpochOffset100ns = 116444736000000000

// FileTime is a 64-bit Windows FILETIME: 100ns ticks since 1601-01-01Z.
// The codec round-trips it exactly; conversion to wall-clock is a
// convenience layered on top, not part of the wire representation.
type FileTime uint64

// ToTime converts to a Go time.Time. The zero FileTime maps to time.Time{}.
func (f FileTime) ToTime() time.Time {
	if f == 0 {
		return time.Time{}
	}
	nsec := (int64(f) - windowsEpochOffset100ns) * 100
	return time.Unix(0, nsec).UTC()
}

// FileTimeFromTime converts a Go time.Time to a FileTime.
func FileTimeFromTime(t time.Time) FileTime {
	if t.IsZero() {
		return 0
	}
	return FileTime(uint64(t.UnixNano()/100) + windowsEpochOffset100ns)
}

func (r *Reader) FileTime() FileTime { return FileTime(r.Uint64()) }
func (w *Writer) FileTime(f FileTime) { w.Uint64(uint64(f)) }
