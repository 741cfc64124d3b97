package wire

// NegotiateContext is one 8-byte-aligned TLV element of the 3.1.1 negotiate
// exchange (MS-SMB2 2.2.3.1). Parsing the Data payload is keyed by Type;
// unknown types are preserved as opaque bytes and forwarded unchanged on a
// symmetric server build.
type NegotiateContext struct {
	Type uint16
	Data []byte
}

// PreauthIntegrityCapabilities is negotiate context type 0x0001.
type PreauthIntegrityCapabilities struct {
	HashAlgorithms []uint16
	Salt           []byte
}

func (p *PreauthIntegrityCapabilities) Encode() []byte {
	w := NewWriter(4 + len(p.HashAlgorithms)*2 + len(p.Salt))
	w.Uint16(uint16(len(p.HashAlgorithms)))
	w.Uint16(uint16(len(p.Salt)))
	for _, h := range p.HashAlgorithms {
		w.Uint16(h)
	}
	w.RawBytes(p.Salt)
	return w.Bytes()
}

func DecodePreauthIntegrityCapabilities(data []byte) (*PreauthIntegrityCapabilities, error) {
	r := NewReader(data)
	count := r.Uint16()
	saltLen := r.Uint16()
	algs := make([]uint16, count)
	for i := range algs {
		algs[i] = r.Uint16()
	}
	salt := r.Bytes(int(saltLen))
	if err := r.Err(); err != nil {
		return nil, err
	}
	return &PreauthIntegrityCapabilities{HashAlgorithms: algs, Salt: append([]byte(nil), salt...)}, nil
}

// EncryptionCapabilities is negotiate context type 0x0002.
type EncryptionCapabilities struct {
	Ciphers []uint16
}

func (e *EncryptionCapabilities) Encode() []byte {
	w := NewWriter(2 + len(e.Ciphers)*2)
	w.Uint16(uint16(len(e.Ciphers)))
	for _, c := range e.Ciphers {
		w.Uint16(c)
	}
	return w.Bytes()
}

func DecodeEncryptionCapabilities(data []byte) (*EncryptionCapabilities, error) {
	r := NewReader(data)
	count := r.Uint16()
	ciphers := make([]uint16, count)
	for i := range ciphers {
		ciphers[i] = r.Uint16()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return &EncryptionCapabilities{Ciphers: ciphers}, nil
}

// CompressionCapabilities is negotiate context type 0x0003.
type CompressionCapabilities struct {
	Algorithms []uint16
}

func (c *CompressionCapabilities) Encode() []byte {
	w := NewWriter(8 + len(c.Algorithms)*2)
	w.Uint16(uint16(len(c.Algorithms)))
	w.Uint16(0) // Padding
	w.Uint32(0) // Flags (none defined as required)
	for _, a := range c.Algorithms {
		w.Uint16(a)
	}
	return w.Bytes()
}

func DecodeCompressionCapabilities(data []byte) (*CompressionCapabilities, error) {
	r := NewReader(data)
	count := r.Uint16()
	r.Skip(2)
	r.Skip(4)
	algs := make([]uint16, count)
	for i := range algs {
		algs[i] = r.Uint16()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return &CompressionCapabilities{Algorithms: algs}, nil
}

// NetnameNegotiateContext is negotiate context type 0x0005: the server's
// fully-qualified DNS name as the client dialed it.
type NetnameNegotiateContext struct {
	NetName string
}

func (n *NetnameNegotiateContext) Encode() []byte { return EncodeUTF16LE(n.NetName) }

func DecodeNetnameNegotiateContext(data []byte) (*NetnameNegotiateContext, error) {
	return &NetnameNegotiateContext{NetName: DecodeUTF16LE(data)}, nil
}

// SigningCapabilities is negotiate context type 0x0008 (3.1.1).
type SigningCapabilities struct {
	Algorithms []uint16
}

func (s *SigningCapabilities) Encode() []byte {
	w := NewWriter(2 + len(s.Algorithms)*2)
	w.Uint16(uint16(len(s.Algorithms)))
	for _, a := range s.Algorithms {
		w.Uint16(a)
	}
	return w.Bytes()
}

func DecodeSigningCapabilities(data []byte) (*SigningCapabilities, error) {
	r := NewReader(data)
	count := r.Uint16()
	algs := make([]uint16, count)
	for i := range algs {
		algs[i] = r.Uint16()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return &SigningCapabilities{Algorithms: algs}, nil
}

// EncodeNegotiateContextList writes a list of contexts, each padded so the
// next one starts 8-byte aligned, per the chained-list codec rule.
func EncodeNegotiateContextList(w *Writer, ctxs []NegotiateContext) {
	for i, c := range ctxs {
		w.Uint16(c.Type)
		w.Uint16(uint16(len(c.Data)))
		w.Zeros(4) // Reserved
		w.RawBytes(c.Data)
		if i != len(ctxs)-1 {
			w.PadTo(8)
		}
	}
}

// DecodeNegotiateContextList reads count contexts starting at the reader's
// current (already 8-byte-aligned) position.
func DecodeNegotiateContextList(r *Reader, count int) ([]NegotiateContext, error) {
	out := make([]NegotiateContext, 0, count)
	for i := 0; i < count; i++ {
		if r.Position()%8 != 0 {
			return nil, errMisaligned("negotiate context", r.Position())
		}
		typ := r.Uint16()
		dataLen := r.Uint16()
		r.Skip(4) // Reserved
		data := r.Bytes(int(dataLen))
		out = append(out, NegotiateContext{Type: typ, Data: append([]byte(nil), data...)})
		if i != count-1 {
			r.Skip(PadTo(r.Position(), 8))
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
