package wire

import "fmt"

// TransformHeaderSize is the fixed size of the SMB2_TRANSFORM_HEADER
// wrapping an encrypted message (MS-SMB2 2.2.41).
const TransformHeaderSize = 52

// TransformFlagEncrypted is the only flag value TransformHeader.Flags
// currently carries.
const TransformFlagEncrypted uint16 = 0x0001

// TransformHeader is the 52-byte wrapper around an AEAD-encrypted SMB2
// message (MS-SMB2 2.2.41). Signature holds the AEAD authentication tag
// once encryption completes; Nonce is always 16 bytes on the wire with only
// the cipher's native nonce length (11 for CCM, 12 for GCM) filled from a
// CSPRNG and the remainder left zero.
type TransformHeader struct {
	Signature    [16]byte
	Nonce        [16]byte
	OriginalSize uint32
	Flags        uint16
	SessionID    uint64
}

func (t *TransformHeader) Encode() []byte {
	w := NewWriter(TransformHeaderSize)
	w.RawBytes(ProtocolIDEncrypted[:])
	w.RawBytes(t.Signature[:])
	w.RawBytes(t.Nonce[:])
	w.Uint32(t.OriginalSize)
	w.Uint16(0) // Reserved
	w.Uint16(t.Flags)
	w.Uint64(t.SessionID)
	return w.Bytes()
}

// DecodeTransformHeader parses the fixed header from the front of data,
// which must begin with the \xFDSMB magic.
func DecodeTransformHeader(data []byte) (*TransformHeader, error) {
	if len(data) < TransformHeaderSize {
		return nil, fmt.Errorf("wire: short transform header: %d bytes", len(data))
	}
	if data[0] != ProtocolIDEncrypted[0] || data[1] != 'S' || data[2] != 'M' || data[3] != 'B' {
		return nil, fmt.Errorf("wire: bad encrypted transform magic %x", data[0:4])
	}
	r := NewReader(data)
	r.Skip(4)
	t := &TransformHeader{}
	copy(t.Signature[:], r.Bytes(16))
	copy(t.Nonce[:], r.Bytes(16))
	t.OriginalSize = r.Uint32()
	r.Skip(2) // Reserved
	t.Flags = r.Uint16()
	t.SessionID = r.Uint64()
	return t, r.Err()
}

// AAD returns the portion of an encoded transform header that AEAD
// encryption authenticates as associated data: every field past the
// signature and nonce (MS-SMB2 3.1.4.3).
func (t *TransformHeader) AAD() []byte {
	full := t.Encode()
	return full[4+16+16:]
}

// CompressedTransformHeaderSize is the fixed portion of an unchained
// compressed transform header (MS-SMB2 2.2.42.1), before the single
// algorithm's compressed payload.
const CompressedTransformHeaderSize = 16

// CompressedTransformHeader is the unchained (single-algorithm) compressed
// message wrapper.
type CompressedTransformHeader struct {
	OriginalCompressedSegmentSize uint32
	CompressionAlgorithm          uint16
	Offset                        uint32 // bytes of the payload left uncompressed, from the start
}

func (c *CompressedTransformHeader) Encode(payload []byte) []byte {
	w := NewWriter(CompressedTransformHeaderSize + len(payload))
	w.RawBytes(ProtocolIDCompressed[:])
	w.Uint32(c.OriginalCompressedSegmentSize)
	w.Uint16(c.CompressionAlgorithm)
	w.Uint16(0) // Flags = SMB2_COMPRESSION_FLAG_NONE (unchained)
	w.Uint32(c.Offset)
	w.RawBytes(payload)
	return w.Bytes()
}

func DecodeCompressedTransformHeader(data []byte) (*CompressedTransformHeader, []byte, error) {
	if len(data) < CompressedTransformHeaderSize {
		return nil, nil, fmt.Errorf("wire: short compressed transform header: %d bytes", len(data))
	}
	if data[0] != ProtocolIDCompressed[0] || data[1] != 'S' || data[2] != 'M' || data[3] != 'B' {
		return nil, nil, fmt.Errorf("wire: bad compressed transform magic %x", data[0:4])
	}
	r := NewReader(data)
	r.Skip(4)
	c := &CompressedTransformHeader{}
	c.OriginalCompressedSegmentSize = r.Uint32()
	c.CompressionAlgorithm = r.Uint16()
	flags := r.Uint16()
	if flags != 0 {
		return nil, nil, fmt.Errorf("wire: unchained compressed header has nonzero flags 0x%04x", flags)
	}
	c.Offset = r.Uint32()
	if err := r.Err(); err != nil {
		return nil, nil, err
	}
	return c, data[CompressedTransformHeaderSize:], nil
}

// CompressedPayloadHeader is one element of a chained compressed transform
// (MS-SMB2 2.2.42.2): each payload item names its own algorithm and,
// except for the final item, an explicit decompressed size.
type CompressedPayloadHeader struct {
	CompressionAlgorithm uint16
	Flags                uint16
	Length               uint32
}

const chainedPayloadHeaderSize = 8

// ChainedFlagNone and ChainedFlagLast mirror MS-SMB2's per-item chained
// compression flags; only the final item may omit OriginalPayloadSize.
const (
	ChainedFlagNone uint16 = 0x0000
	ChainedFlagLast uint16 = 0x0001
)

// EncodeChainedCompressed writes the chained (flags=1) compressed transform
// header followed by each item's own 8-byte sub-header and payload.
func EncodeChainedCompressed(originalSize uint32, items []struct {
	Algorithm uint16
	Payload   []byte
}) []byte {
	w := NewWriter(CompressedTransformHeaderSize)
	w.RawBytes(ProtocolIDCompressed[:])
	w.Uint32(originalSize)
	w.Uint16(0) // CompressionAlgorithm unused at the top level for chained
	w.Uint16(1) // Flags = SMB2_COMPRESSION_FLAG_CHAINED
	w.Uint32(0) // Offset/Length unused for chained
	for i, item := range items {
		w.Uint16(item.Algorithm)
		if i == len(items)-1 {
			w.Uint16(ChainedFlagLast)
			w.Uint32(0)
		} else {
			w.Uint16(ChainedFlagNone)
			w.Uint32(uint32(len(item.Payload)))
		}
		w.RawBytes(item.Payload)
	}
	return w.Bytes()
}
