package client

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"github.com/smb2go/smb2client/wire"
)

// CompressionPolicy governs whether and how the connection worker compresses
// an outbound message (spec §9's open question: MS-SMB2 does not mandate a
// threshold or algorithm-selection heuristic, so this is documented,
// swappable configuration rather than an assumed protocol requirement).
type CompressionPolicy struct {
	// MinSize is the smallest message body the worker will bother
	// compressing; below this, transform overhead isn't worth paying.
	MinSize int
}

// DefaultCompressionPolicy matches the common real-world heuristic of
// skipping small messages outright.
var DefaultCompressionPolicy = CompressionPolicy{MinSize: 4096}

// AlgorithmOrder is the client's compression-algorithm preference, offered
// in the 3.1.1 negotiate context and consulted again once the server's own
// preference is known.
func (CompressionPolicy) AlgorithmOrder() []uint16 {
	return []uint16{wire.CompressionLZ77Huffman, wire.CompressionLZ77, wire.CompressionPatternV1}
}

// ShouldCompress reports whether policy elects to compress a payload of n
// bytes, given the algorithms the connection actually negotiated.
func (p CompressionPolicy) ShouldCompress(n int, negotiated []uint16) bool {
	return n >= p.MinSize && len(negotiated) > 0
}

// chooseAlgorithm returns the first of the client's preferred algorithms
// that the server also advertised, or ok=false if none overlap.
func chooseAlgorithm(negotiated []uint16) (uint16, bool) {
	for _, want := range (CompressionPolicy{}).AlgorithmOrder() {
		for _, have := range negotiated {
			if want == have {
				return want, true
			}
		}
	}
	return 0, false
}

// CompressMessage wraps message in an unchained compressed transform using
// algorithm. It returns nil with ok=false if the algorithm isn't one this
// client can actually produce, or if the compressed payload would not be
// smaller than message (LZ77/LZ77+Huffman are
// implemented atop DEFLATE, which is a reasonable stand-in for the
// plain-LZ77 family this codec never needs bit-exact parity for on the
// encode side; PatternV1 is a run-length scheme this client only decodes).
func CompressMessage(message []byte, algorithm uint16) ([]byte, bool) {
	switch algorithm {
	case wire.CompressionLZ77, wire.CompressionLZ77Huffman:
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, false
		}
		if _, err := fw.Write(message); err != nil {
			return nil, false
		}
		if err := fw.Close(); err != nil {
			return nil, false
		}
		if buf.Len() >= len(message) {
			return nil, false
		}
		hdr := &wire.CompressedTransformHeader{
			OriginalCompressedSegmentSize: uint32(len(message)),
			CompressionAlgorithm:          algorithm,
		}
		return hdr.Encode(buf.Bytes()), true
	default:
		return nil, false
	}
}

// DecompressMessage reverses CompressMessage for the unchained form, and
// decodes (without re-encoding support) the chained form and
// SMB2_COMPRESSION_PATTERN_V1's run-length payload.
func DecompressMessage(framed []byte) ([]byte, error) {
	if len(framed) < wire.CompressedTransformHeaderSize {
		return nil, fmt.Errorf("client: %w: compressed message too short", ErrProtocolDecode)
	}
	flags := le16(framed[10:12])
	if flags == 1 {
		return decompressChained(framed)
	}
	hdr, payload, err := wire.DecodeCompressedTransformHeader(framed)
	if err != nil {
		return nil, fmt.Errorf("client: %w: %v", ErrProtocolDecode, err)
	}
	return decompressOne(hdr.CompressionAlgorithm, payload, int(hdr.OriginalCompressedSegmentSize), int(hdr.Offset))
}

func decompressOne(algorithm uint16, payload []byte, originalSize, plainPrefix int) ([]byte, error) {
	if plainPrefix > len(payload) {
		plainPrefix = 0
	}
	plain := payload[:plainPrefix]
	compressed := payload[plainPrefix:]
	switch algorithm {
	case wire.CompressionLZ77, wire.CompressionLZ77Huffman:
		fr := flate.NewReader(bytes.NewReader(compressed))
		defer fr.Close()
		out, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("client: %w: decompress: %v", ErrProtocolDecode, err)
		}
		return append(append([]byte(nil), plain...), out...), nil
	case wire.CompressionPatternV1:
		return append(append([]byte(nil), plain...), decompressPatternV1(compressed, originalSize-plainPrefix)...), nil
	default:
		return nil, fmt.Errorf("client: %w: unsupported compression algorithm 0x%04x", ErrProtocolDecode, algorithm)
	}
}

// decompressPatternV1 expands SMB2_COMPRESSION_PAYLOAD_HEADER's degenerate
// case: a single repeated byte run (MS-SMB2 2.2.42.3).
func decompressPatternV1(data []byte, size int) []byte {
	if len(data) < 1 {
		return nil
	}
	pattern := data[0]
	out := make([]byte, size)
	for i := range out {
		out[i] = pattern
	}
	return out
}

func decompressChained(framed []byte) ([]byte, error) {
	r := wire.NewReader(framed)
	r.Skip(4) // magic
	originalSize := r.Uint32()
	r.Skip(8) // top-level algorithm/flags/offset-length, unused when chained
	out := make([]byte, 0, originalSize)
	for r.Remaining() > 0 {
		algorithm := r.Uint16()
		itemFlags := r.Uint16()
		length := r.Uint32()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("client: %w: chained compression item: %v", ErrProtocolDecode, err)
		}
		last := itemFlags == wire.ChainedFlagLast
		var payloadLen int
		if last {
			payloadLen = r.Remaining()
		} else {
			payloadLen = int(length)
		}
		payload := r.Bytes(payloadLen)
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("client: %w: chained compression payload: %v", ErrProtocolDecode, err)
		}
		if algorithm == wire.CompressionNone {
			out = append(out, payload...)
			continue
		}
		decoded, _, err := decompressOneFull(algorithm, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
		if last {
			break
		}
	}
	return out, nil
}

func decompressOneFull(algorithm uint16, payload []byte) ([]byte, []byte, error) {
	switch algorithm {
	case wire.CompressionLZ77, wire.CompressionLZ77Huffman:
		fr := flate.NewReader(bytes.NewReader(payload))
		defer fr.Close()
		out, err := io.ReadAll(fr)
		if err != nil {
			return nil, nil, fmt.Errorf("client: %w: decompress chained item: %v", ErrProtocolDecode, err)
		}
		return out, nil, nil
	default:
		return nil, nil, fmt.Errorf("client: %w: unsupported chained compression algorithm 0x%04x", ErrProtocolDecode, algorithm)
	}
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
