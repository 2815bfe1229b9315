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

// RadioID identifies one radio across transmitter, signal and receiver PDUs
type RadioID struct {
	Entity EntityID
	Radio  uint16
}

func (id RadioID) String() string {
	return fmt.Sprintf("%s/%d", id.Entity, id.Radio)
}

// RadioHeader is the radio-communications family header (20 bytes)
type RadioHeader struct {
	Header
	EntityID    EntityID
	RadioNumber uint16
}

// RadioID returns the (reference entity, radio number) pair
func (h *RadioHeader) RadioID() RadioID {
	return RadioID{Entity: h.EntityID, Radio: h.RadioNumber}
}

// Len implements PDU for a bare radio header
func (h *RadioHeader) Len() int {
	return RadioHeaderLength
}

// EncodeTo implements PDU for a bare radio header
func (h *RadioHeader) EncodeTo(w *Writer) {
	h.encodeTo(w, RadioHeaderLength)
}

func (h *RadioHeader) encodeTo(w *Writer, length int) {
	h.Header.encodeTo(w, length)
	h.EntityID.EncodeTo(w)
	w.PutUint16(h.RadioNumber)
}

// decodeRadioHeader copies the base header and reads the radio fields
func decodeRadioHeader(h Header, r *Reader) RadioHeader {
	rh := RadioHeader{Header: h}
	rh.EntityID.DecodeFrom(r)
	rh.RadioNumber = r.Uint16()
	return rh
}

// EncodingScheme is the signal encoding descriptor: class in the top 2 bits, type below
type EncodingScheme uint16

// NewEncodingScheme packs an encoding class and type
func NewEncodingScheme(class EncodingClass, typ uint16) EncodingScheme {
	return EncodingScheme(uint16(class)<<14 | typ&0x3FFF)
}

// Class returns the encoding class
func (e EncodingScheme) Class() EncodingClass {
	return EncodingClass(uint16(e) >> 14)
}

// Type returns the encoding type, or the TDL message count for raw binary
func (e EncodingScheme) Type() uint16 {
	return uint16(e) & 0x3FFF
}

func (e EncodingScheme) String() string {
	return fmt.Sprintf("%s/%d", e.Class(), e.Type())
}

// maxSignalData is the largest payload whose bit count fits the 16-bit field
const maxSignalData = 0xFFFF / 8

// SignalPDU carries digitized audio or data for one radio
type SignalPDU struct {
	RadioHeader
	EncodingScheme EncodingScheme
	TDLType        uint16
	SampleRate     uint32
	Samples        uint16
	// Data is the payload; its bit length on the wire is always len(Data)*8.
	Data []byte
}

// NewSignalPDU creates a signal PDU for the given radio
func NewSignalPDU(version ProtocolVersion, exercise uint8, radio RadioID) *SignalPDU {
	return &SignalPDU{
		RadioHeader: RadioHeader{
			Header:      NewHeader(version, exercise, PDUTypeSignal),
			EntityID:    radio.Entity,
			RadioNumber: radio.Radio,
		},
	}
}

// DataLengthBits returns the bit count written on the wire
func (p *SignalPDU) DataLengthBits() int {
	return len(p.Data) * 8
}

// Padding returns the zero bytes that follow the payload
func (p *SignalPDU) Padding() int {
	return padTo4(len(p.Data))
}

// Len implements PDU
func (p *SignalPDU) Len() int {
	return SignalFixedLength + len(p.Data) + p.Padding()
}

// Validate reports payloads the 16-bit bit-length field cannot describe
func (p *SignalPDU) Validate() error {
	if len(p.Data) > maxSignalData {
		return fmt.Errorf("%w: signal data %d bytes exceeds %d", ErrPDUTooLarge, len(p.Data), maxSignalData)
	}
	return nil
}

// EncodeTo implements PDU
func (p *SignalPDU) EncodeTo(w *Writer) {
	p.RadioHeader.encodeTo(w, p.Len())
	w.PutUint16(uint16(p.EncodingScheme))
	w.PutUint16(p.TDLType)
	w.PutUint32(p.SampleRate)
	w.PutUint16(uint16(p.DataLengthBits()))
	w.PutUint16(p.Samples)
	w.PutBytes(p.Data)
	w.PutZeros(p.Padding())
}

func decodeSignal(h Header, r *Reader) (PDU, error) {
	p := &SignalPDU{RadioHeader: decodeRadioHeader(h, r)}
	p.EncodingScheme = EncodingScheme(r.Uint16())
	p.TDLType = r.Uint16()
	p.SampleRate = r.Uint32()
	bits := int(r.Uint16())
	p.Samples = r.Uint16()
	n := (bits + 7) / 8
	p.Data = r.Bytes(n)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if p.Data == nil {
		p.Data = []byte{}
	}
	// Senders that omit trailing padding are tolerated.
	r.Skip(min(padTo4(n), r.Remaining()))
	return p, nil
}

// ReceiverPDU reports the state of a radio receiver
type ReceiverPDU struct {
	RadioHeader
	State                  ReceiverState
	ReceivedPower          float32
	TransmitterEntityID    EntityID
	TransmitterRadioNumber uint16
}

// NewReceiverPDU creates a receiver PDU for the given radio
func NewReceiverPDU(version ProtocolVersion, exercise uint8, radio RadioID) *ReceiverPDU {
	return &ReceiverPDU{
		RadioHeader: RadioHeader{
			Header:      NewHeader(version, exercise, PDUTypeReceiver),
			EntityID:    radio.Entity,
			RadioNumber: radio.Radio,
		},
	}
}

// Transmitter returns the radio being received
func (p *ReceiverPDU) Transmitter() RadioID {
	return RadioID{Entity: p.TransmitterEntityID, Radio: p.TransmitterRadioNumber}
}

// Len implements PDU
func (p *ReceiverPDU) Len() int {
	return ReceiverLength
}

// EncodeTo implements PDU
func (p *ReceiverPDU) EncodeTo(w *Writer) {
	p.RadioHeader.encodeTo(w, p.Len())
	w.PutUint16(uint16(p.State))
	w.PutZeros(2)
	w.PutFloat32(p.ReceivedPower)
	p.TransmitterEntityID.EncodeTo(w)
	w.PutUint16(p.TransmitterRadioNumber)
}

func decodeReceiver(h Header, r *Reader) (PDU, error) {
	p := &ReceiverPDU{RadioHeader: decodeRadioHeader(h, r)}
	p.State = ReceiverState(r.Uint16())
	r.Skip(2)
	p.ReceivedPower = r.Float32()
	p.TransmitterEntityID.DecodeFrom(r)
	p.TransmitterRadioNumber = r.Uint16()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return p, nil
}
