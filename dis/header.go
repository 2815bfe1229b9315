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

import "fmt"

// PDU is a decoded or encodable protocol data unit
type PDU interface {
	// PDUHeader returns the common header
	PDUHeader() *Header
	// Len returns the exact encoded length in bytes
	Len() int
	// EncodeTo writes the whole PDU, header included
	EncodeTo(w *Writer)
}

// PDUStatus is the edition-7 status byte.
// Only the coupled extension indicator is named; other bits are preserved as-is.
type PDUStatus uint8

const statusCEI = 3

// Bit reports bit n of the status byte
func (s PDUStatus) Bit(n uint) bool {
	return s&(1<<n) != 0
}

// WithBit returns s with bit n set or cleared
func (s PDUStatus) WithBit(n uint, v bool) PDUStatus {
	if v {
		return s | 1<<n
	}
	return s &^ (1 << n)
}

// CoupledExtension reports the coupled extension indicator
func (s PDUStatus) CoupledExtension() bool {
	return s.Bit(statusCEI)
}

// WithCoupledExtension returns s with the coupled extension indicator set or cleared
func (s PDUStatus) WithCoupledExtension(v bool) PDUStatus {
	return s.WithBit(statusCEI, v)
}

// Header is the 12-byte record that starts every PDU
type Header struct {
	ProtocolVersion ProtocolVersion
	ExerciseID      uint8
	PDUType         PDUType
	ProtocolFamily  ProtocolFamily
	Timestamp       Timestamp
	// Length is informational after decode; encoding recomputes it.
	Length uint16
	// Status is only carried by the edition-7 layout.
	Status PDUStatus
}

// NewHeader creates a header for t with the family the standard assigns to it
func NewHeader(version ProtocolVersion, exercise uint8, t PDUType) Header {
	return Header{
		ProtocolVersion: version,
		ExerciseID:      exercise,
		PDUType:         t,
		ProtocolFamily:  t.Family(),
	}
}

// PDUHeader implements PDU
func (h *Header) PDUHeader() *Header {
	return h
}

// Len implements PDU; a bare header is 12 bytes
func (h *Header) Len() int {
	return HeaderLength
}

// EncodeTo implements PDU for a bare header
func (h *Header) EncodeTo(w *Writer) {
	h.encodeTo(w, HeaderLength)
}

func (h Header) String() string {
	return fmt.Sprintf("%s v%d exercise=%d family=%s len=%d ts=%s",
		h.PDUType, h.ProtocolVersion, h.ExerciseID, h.ProtocolFamily, h.Length, h.Timestamp)
}

// decodeFrom reads the header using the reader's edition layout
func (h *Header) decodeFrom(r *Reader) {
	h.ProtocolVersion = ProtocolVersion(r.Uint8())
	h.ExerciseID = r.Uint8()
	h.PDUType = PDUType(r.Uint8())
	h.ProtocolFamily = ProtocolFamily(r.Uint8())
	h.Timestamp = Timestamp(r.Uint32())
	h.Length = r.Uint16()
	if r.Edition().HasStatus() {
		h.Status = PDUStatus(r.Uint8())
		r.Skip(1)
	} else {
		h.Status = 0
		r.Skip(2)
	}
}

// encodeTo writes the header with the given total PDU length
func (h *Header) encodeTo(w *Writer, length int) {
	h.Length = uint16(length)
	w.PutUint8(uint8(h.ProtocolVersion))
	w.PutUint8(h.ExerciseID)
	w.PutUint8(uint8(h.PDUType))
	w.PutUint8(uint8(h.ProtocolFamily))
	w.PutUint32(uint32(h.Timestamp))
	w.PutUint16(h.Length)
	if w.Edition().HasStatus() {
		w.PutUint8(uint8(h.Status))
		w.PutUint8(0)
	} else {
		w.PutZeros(2)
	}
}

// RawPDU carries a PDU whose type has no registered decoder
type RawPDU struct {
	Header
	Body []byte
}

// Len implements PDU
func (p *RawPDU) Len() int {
	return HeaderLength + len(p.Body)
}

// EncodeTo implements PDU
func (p *RawPDU) EncodeTo(w *Writer) {
	p.Header.encodeTo(w, p.Len())
	w.PutBytes(p.Body)
}

func decodeRaw(h Header, r *Reader) (PDU, error) {
	p := &RawPDU{Header: h}
	p.Body = r.Bytes(r.Remaining())
	return p, r.Err()
}
