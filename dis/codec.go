// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dis

import (
	"encoding/binary"
	"fmt"
)

// DecodeFunc decodes the body of one PDU type.
// h is the already-decoded header; r is positioned just past it.
type DecodeFunc func(h Header, r *Reader) (PDU, error)

// validator is implemented by PDUs with size limits beyond the length field
type validator interface {
	Validate() error
}

// Codec encodes and decodes PDUs for one configured edition.
// The edition selects the header layout for every packet; it is never
// inferred from the packet itself.
type Codec struct {
	edition  ProtocolVersion
	decoders map[PDUType]DecodeFunc
}

// NewCodec creates a codec with the built-in decoders registered
func NewCodec(opts ...CodecOption) (*Codec, error) {
	options := defaultCodecOptions()
	for _, opt := range opts {
		opt(options)
	}

	if !options.edition.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEdition, options.edition)
	}

	c := &Codec{
		edition:  options.edition,
		decoders: make(map[PDUType]DecodeFunc),
	}
	c.Register(PDUTypeEntityState, decodeEntityState)
	c.Register(PDUTypeSignal, decodeSignal)
	c.Register(PDUTypeReceiver, decodeReceiver)
	for t, fn := range options.decoders {
		c.Register(t, fn)
	}

	return c, nil
}

// Edition returns the configured edition
func (c *Codec) Edition() ProtocolVersion {
	return c.edition
}

// Register installs the decoder for t, replacing any previous one
func (c *Codec) Register(t PDUType, fn DecodeFunc) {
	c.decoders[t] = fn
}

// Registered reports whether t has a decoder
func (c *Codec) Registered(t PDUType) bool {
	_, ok := c.decoders[t]
	return ok
}

// DecodeHeader decodes the 12-byte common header and returns the bytes consumed
func (c *Codec) DecodeHeader(data []byte) (Header, int, error) {
	var h Header
	r := NewReader(data, c.edition)
	h.decodeFrom(r)
	if err := r.Err(); err != nil {
		return Header{}, 0, err
	}
	return h, r.Offset(), nil
}

// DecodeBody decodes the PDU in data whose header h was already decoded.
// Types without a decoder are returned as *RawPDU.
func (c *Codec) DecodeBody(h Header, data []byte) (PDU, error) {
	if int(h.Length) >= HeaderLength && int(h.Length) <= len(data) {
		data = data[:h.Length]
	}

	fn, ok := c.decoders[h.PDUType]
	if !ok {
		fn = decodeRaw
	}

	r := NewReader(data, c.edition)
	r.Skip(HeaderLength)
	pdu, err := fn(h, r)
	if err != nil {
		return nil, &DecodeError{Type: h.PDUType, Offset: r.Offset(), Err: err}
	}
	return pdu, nil
}

// Decode decodes one complete PDU
func (c *Codec) Decode(data []byte) (PDU, error) {
	h, _, err := c.DecodeHeader(data)
	if err != nil {
		return nil, &DecodeError{Type: PDUTypeOther, Offset: 0, Err: err}
	}
	return c.DecodeBody(h, data)
}

// Encode encodes pdu, recomputing the header length field
func (c *Codec) Encode(pdu PDU) ([]byte, error) {
	if pdu == nil {
		return nil, ErrNilPDU
	}
	if v, ok := pdu.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	n := pdu.Len()
	if n > MaxPDULength {
		return nil, fmt.Errorf("%w: %d bytes", ErrPDUTooLarge, n)
	}

	w := NewWriter(n, c.edition)
	pdu.EncodeTo(w)
	if w.Len() != n {
		return nil, fmt.Errorf("%w: %s wrote %d bytes, declared %d", ErrInvalidLength, pdu.PDUHeader().PDUType, w.Len(), n)
	}
	return w.Bytes(), nil
}

// Split separates a datagram carrying several concatenated PDUs.
// PDUs preceding a malformed one are returned along with the error.
func (c *Codec) Split(datagram []byte) ([][]byte, error) {
	var pdus [][]byte
	off := 0
	for off < len(datagram) {
		rest := datagram[off:]
		if len(rest) < HeaderLength {
			return pdus, truncated(off, HeaderLength, len(rest))
		}
		length := int(binary.BigEndian.Uint16(rest[8:10]))
		if length < HeaderLength {
			return pdus, fmt.Errorf("%w: %d at offset %d", ErrInvalidLength, length, off)
		}
		if length > len(rest) {
			return pdus, truncated(off, length, len(rest))
		}
		pdus = append(pdus, rest[:length])
		off += length
	}
	return pdus, nil
}
