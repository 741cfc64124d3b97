package wire

import "fmt"

// DFS referral header/version flags (MS-DFSC 2.2.3).
const (
	DfsReferralFlagReferralServers uint16 = 0x0001
	DfsReferralFlagStorageServers  uint16 = 0x0002
	DfsReferralFlagTargetFailback  uint16 = 0x0004
)

// RootReferral is one REFERRAL_ENTRY (version 4, MS-DFSC 2.2.5.4), the
// variant returned by FSCTL_DFS_GET_REFERRALS(_EX) for SMB2 shares.
type RootReferral struct {
	VersionNumber        uint16
	Size                 uint16
	ServerType           uint16
	ReferralEntryFlags   uint16
	TimeToLive           uint32
	DFSPath              string
	DFSAlternatePath     string
	NetworkAddress       string
}

// DfsReferralResponse is the decoded FSCTL_DFS_GET_REFERRALS response
// payload (MS-DFSC 2.2.4).
type DfsReferralResponse struct {
	PathConsumed uint16
	NumberOfReferrals uint16
	Flags        uint16
	Referrals    []RootReferral
}

// DecodeDfsReferralResponse parses the RESP_GET_DFS_REFERRAL structure.
// Each referral's string fields are given as offsets relative to the start
// of that referral entry, per MS-DFSC 2.2.5.4.
func DecodeDfsReferralResponse(data []byte) (*DfsReferralResponse, error) {
	r := NewReader(data)
	resp := &DfsReferralResponse{
		PathConsumed:      r.Uint16(),
		NumberOfReferrals: r.Uint16(),
		Flags:             r.Uint32As16(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	entriesStart := r.Position()
	pos := entriesStart
	for i := 0; i < int(resp.NumberOfReferrals); i++ {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("wire: DFS referral %d truncated", i)
		}
		er := NewReader(data[pos:])
		ver := er.Uint16()
		size := er.Uint16()
		if ver != 4 {
			return nil, fmt.Errorf("wire: DFS referral version %d unsupported, only v4 is decoded", ver)
		}
		ref := RootReferral{VersionNumber: ver, Size: size}
		ref.ServerType = er.Uint16()
		ref.ReferralEntryFlags = er.Uint16()
		ref.TimeToLive = er.Uint32()
		dfsPathOff := er.Uint16()
		dfsAltOff := er.Uint16()
		netAddrOff := er.Uint16()
		er.Skip(2) // ServiceSiteGuid start, reserved for non-root-targeted entries
		if err := er.Err(); err != nil {
			return nil, err
		}
		readStr := func(off uint16) (string, error) {
			if off == 0 {
				return "", nil
			}
			start := pos + int(off)
			if start >= len(data) {
				return "", fmt.Errorf("wire: DFS referral string offset out of range")
			}
			// NUL-terminated UTF-16LE string; scan for the terminator.
			end := start
			for end+1 < len(data) {
				if data[end] == 0 && data[end+1] == 0 {
					break
				}
				end += 2
			}
			return DecodeUTF16LE(data[start:end]), nil
		}
		var err error
		if ref.DFSPath, err = readStr(dfsPathOff); err != nil {
			return nil, err
		}
		if ref.DFSAlternatePath, err = readStr(dfsAltOff); err != nil {
			return nil, err
		}
		if ref.NetworkAddress, err = readStr(netAddrOff); err != nil {
			return nil, err
		}
		resp.Referrals = append(resp.Referrals, ref)
		pos += int(size)
	}
	return resp, nil
}

// Uint32As16 reads a 4-byte field and returns its low 16 bits; the
// GET_DFS_REFERRAL response header packs ReferralHeaderFlags as a 4-byte
// field even though only the low 16 bits are ever set by Windows servers.
func (r *Reader) Uint32As16() uint16 {
	v := r.Uint32()
	return uint16(v)
}

// GetDfsReferralRequest is the FSCTL_DFS_GET_REFERRALS request payload
// (MS-DFSC 2.2.2).
type GetDfsReferralRequest struct {
	MaxReferralLevel uint16
	RequestFileName  string
}

func (g *GetDfsReferralRequest) Encode() []byte {
	name := EncodeUTF16LE(g.RequestFileName)
	w := NewWriter(4 + len(name) + 2)
	w.Uint16(g.MaxReferralLevel)
	w.RawBytes(name)
	w.Uint16(0) // NUL terminator
	return w.Bytes()
}
