package wire

import (
	"fmt"
	"sort"
)

// SID is a Windows security identifier (MS-DTYP 2.4.2).
type SID struct {
	Revision       uint8
	IdentifierAuth [6]byte
	SubAuthorities []uint32
}

func (s *SID) String() string {
	auth := uint64(0)
	for _, b := range s.IdentifierAuth {
		auth = auth<<8 | uint64(b)
	}
	out := fmt.Sprintf("S-%d-%d", s.Revision, auth)
	for _, sa := range s.SubAuthorities {
		out += fmt.Sprintf("-%d", sa)
	}
	return out
}

func (s *SID) size() int { return 8 + 4*len(s.SubAuthorities) }

func (s *SID) encode(w *Writer) {
	w.Byte(s.Revision)
	w.Byte(uint8(len(s.SubAuthorities)))
	w.RawBytes(s.IdentifierAuth[:])
	for _, sa := range s.SubAuthorities {
		w.Uint32(sa)
	}
}

func decodeSID(r *Reader) (*SID, error) {
	rev := r.Byte()
	count := r.Byte()
	s := &SID{Revision: rev}
	copy(s.IdentifierAuth[:], r.Bytes(6))
	for i := 0; i < int(count); i++ {
		s.SubAuthorities = append(s.SubAuthorities, r.Uint32())
	}
	return s, r.Err()
}

// ACE types and flags (MS-DTYP 2.4.4).
const (
	AceTypeAccessAllowed uint8 = 0x00
	AceTypeAccessDenied  uint8 = 0x01
	AceTypeSystemAudit   uint8 = 0x02
)

const (
	AceFlagObjectInherit      uint8 = 0x01
	AceFlagContainerInherit   uint8 = 0x02
	AceFlagNoPropagateInherit uint8 = 0x04
	AceFlagInheritOnly        uint8 = 0x08
	AceFlagInherited          uint8 = 0x10
)

// ACE is one ACCESS_ALLOWED_ACE/ACCESS_DENIED_ACE record (MS-DTYP 2.4.4.2/.4).
type ACE struct {
	Type   uint8
	Flags  uint8
	Mask   uint32
	SID    *SID
}

// isExplicit reports whether the ACE was set directly on this object rather
// than inherited from a parent container.
func (a *ACE) isExplicit() bool { return a.Flags&AceFlagInherited == 0 }

func (a *ACE) size() int { return 8 + a.SID.size() }

func (a *ACE) encode(w *Writer) {
	w.Byte(a.Type)
	w.Byte(a.Flags)
	w.Uint16(uint16(a.size()))
	w.Uint32(a.Mask)
	a.SID.encode(w)
}

func decodeACE(r *Reader) (*ACE, error) {
	a := &ACE{Type: r.Byte(), Flags: r.Byte()}
	size := r.Uint16()
	_ = size
	a.Mask = r.Uint32()
	sid, err := decodeSID(r)
	if err != nil {
		return nil, err
	}
	a.SID = sid
	return a, r.Err()
}

// ACL is an access control list (MS-DTYP 2.4.5). Canonical ordering places
// explicit ACEs before inherited ACEs, and within the explicit group, deny
// ACEs before allow ACEs (MS-DTYP 2.5.1.1).
type ACL struct {
	Revision uint8
	ACEs     []*ACE
}

// aceOrderKey ranks an ACE for canonical ordering: lower sorts first.
func aceOrderKey(a *ACE) int {
	if a.isExplicit() {
		if a.Type == AceTypeAccessDenied {
			return 0
		}
		return 1
	}
	return 2
}

// OrderACEs returns a new ACL with ACEs in canonical order: explicit-deny,
// explicit-allow, then inherited (in original relative order within each
// group — the sort is stable).
func OrderACEs(aces []*ACE) []*ACE {
	out := make([]*ACE, len(aces))
	copy(out, aces)
	sort.SliceStable(out, func(i, j int) bool {
		return aceOrderKey(out[i]) < aceOrderKey(out[j])
	})
	return out
}

// IsACESorted reports whether aces are already in canonical order.
func IsACESorted(aces []*ACE) bool {
	for i := 1; i < len(aces); i++ {
		if aceOrderKey(aces[i-1]) > aceOrderKey(aces[i]) {
			return false
		}
	}
	return true
}

// InsertACE inserts ace into aces at the position canonical ordering
// requires, without reordering the remainder of the list.
func InsertACE(aces []*ACE, ace *ACE) []*ACE {
	key := aceOrderKey(ace)
	idx := len(aces)
	for i, a := range aces {
		if aceOrderKey(a) > key {
			idx = i
			break
		}
	}
	out := make([]*ACE, 0, len(aces)+1)
	out = append(out, aces[:idx]...)
	out = append(out, ace)
	out = append(out, aces[idx:]...)
	return out
}

func (a *ACL) size() int {
	n := 8
	for _, ace := range a.ACEs {
		n += ace.size()
	}
	return n
}

func (a *ACL) encode(w *Writer) {
	w.Byte(a.Revision)
	w.Byte(0) // Sbz1
	w.Uint16(uint16(a.size()))
	w.Uint16(uint16(len(a.ACEs)))
	w.Uint16(0) // Sbz2
	for _, ace := range a.ACEs {
		ace.encode(w)
	}
}

func decodeACL(r *Reader) (*ACL, error) {
	a := &ACL{Revision: r.Byte()}
	r.Skip(1) // Sbz1
	r.Skip(2) // AclSize, recomputed on encode
	count := r.Uint16()
	r.Skip(2) // Sbz2
	for i := 0; i < int(count); i++ {
		ace, err := decodeACE(r)
		if err != nil {
			return nil, err
		}
		a.ACEs = append(a.ACEs, ace)
	}
	return a, r.Err()
}

// Security descriptor control bits (MS-DTYP 2.4.6).
const (
	SecDescOwnerDefaulted uint16 = 0x0001
	SecDescGroupDefaulted uint16 = 0x0002
	SecDescDaclPresent    uint16 = 0x0004
	SecDescDaclDefaulted  uint16 = 0x0008
	SecDescSaclPresent    uint16 = 0x0010
	SecDescSaclDefaulted  uint16 = 0x0020
	SecDescDaclAutoInheritReq uint16 = 0x0100
	SecDescSaclAutoInheritReq uint16 = 0x0200
	SecDescDaclAutoInherited  uint16 = 0x0400
	SecDescSaclAutoInherited  uint16 = 0x0800
	SecDescSelfRelative   uint16 = 0x8000
)

// SecurityDescriptor is a self-relative SECURITY_DESCRIPTOR (MS-DTYP 2.4.6),
// the payload of the "SecD" create context and QUERY/SET_INFO InfoSecurity.
type SecurityDescriptor struct {
	Revision uint8
	Control  uint16
	Owner    *SID
	Group    *SID
	Sacl     *ACL
	Dacl     *ACL
}

// Encode writes the descriptor in self-relative form, with owner, group,
// SACL and DACL offsets computed from their actual encoded sizes. The four
// offset fields are redundant with Control's presence bits; per MS-DTYP
// 2.4.6 an offset of zero means "absent" regardless of the corresponding
// presence bit, and Encode keeps both consistent by construction.
func (s *SecurityDescriptor) Encode() []byte {
	control := s.Control | SecDescSelfRelative
	control &^= SecDescSaclPresent | SecDescDaclPresent
	if s.Sacl != nil {
		control |= SecDescSaclPresent
	}
	if s.Dacl != nil {
		control |= SecDescDaclPresent
	}
	w := NewWriter(20)
	w.Byte(s.Revision)
	w.Byte(0) // Sbz1
	w.Uint16(control)

	ownerOffPos := w.Mark()
	w.Uint32(0)
	groupOffPos := w.Mark()
	w.Uint32(0)
	saclOffPos := w.Mark()
	w.Uint32(0)
	daclOffPos := w.Mark()
	w.Uint32(0)

	if s.Sacl != nil {
		w.PatchUint32At(saclOffPos, uint32(w.Len()))
		s.Sacl.encode(w)
	}
	if s.Dacl != nil {
		w.PatchUint32At(daclOffPos, uint32(w.Len()))
		s.Dacl.encode(w)
	}
	if s.Owner != nil {
		w.PatchUint32At(ownerOffPos, uint32(w.Len()))
		s.Owner.encode(w)
	}
	if s.Group != nil {
		w.PatchUint32At(groupOffPos, uint32(w.Len()))
		s.Group.encode(w)
	}
	return w.Bytes()
}

// DecodeSecurityDescriptor parses a self-relative SECURITY_DESCRIPTOR and
// validates that each offset/control-bit pair agrees: a present bit with a
// zero offset, or a nonzero offset with the bit clear, is rejected rather
// than silently guessed at.
func DecodeSecurityDescriptor(data []byte) (*SecurityDescriptor, error) {
	r := NewReader(data)
	sd := &SecurityDescriptor{Revision: r.Byte()}
	r.Skip(1) // Sbz1
	sd.Control = r.Uint16()
	ownerOff := r.Uint32()
	groupOff := r.Uint32()
	saclOff := r.Uint32()
	daclOff := r.Uint32()
	if err := r.Err(); err != nil {
		return nil, err
	}

	check := func(name string, present bool, off uint32) error {
		if present && off == 0 {
			return fmt.Errorf("wire: security descriptor %s bit set but offset is zero", name)
		}
		if !present && off != 0 {
			return fmt.Errorf("wire: security descriptor %s offset set but presence bit clear", name)
		}
		return nil
	}
	if err := check("SACL", sd.Control&SecDescSaclPresent != 0, saclOff); err != nil {
		return nil, err
	}
	if err := check("DACL", sd.Control&SecDescDaclPresent != 0, daclOff); err != nil {
		return nil, err
	}

	decodeAt := func(off uint32) (*ACL, error) {
		if off == 0 {
			return nil, nil
		}
		if int(off) >= len(data) {
			return nil, fmt.Errorf("wire: security descriptor ACL offset out of range")
		}
		sub := NewReader(data[off:])
		return decodeACL(sub)
	}
	var err error
	if sd.Sacl, err = decodeAt(saclOff); err != nil {
		return nil, err
	}
	if sd.Dacl, err = decodeAt(daclOff); err != nil {
		return nil, err
	}
	if ownerOff != 0 {
		if int(ownerOff) >= len(data) {
			return nil, fmt.Errorf("wire: security descriptor owner offset out of range")
		}
		sub := NewReader(data[ownerOff:])
		if sd.Owner, err = decodeSID(sub); err != nil {
			return nil, err
		}
	}
	if groupOff != 0 {
		if int(groupOff) >= len(data) {
			return nil, fmt.Errorf("wire: security descriptor group offset out of range")
		}
		sub := NewReader(data[groupOff:])
		if sd.Group, err = decodeSID(sub); err != nil {
			return nil, err
		}
	}
	return sd, nil
}
