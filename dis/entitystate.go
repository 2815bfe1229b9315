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

// maxVariableParams is bounded by the 8-bit count field
const maxVariableParams = 0xFF

// EntityStatePDU reports the identity, type, position and appearance of an entity
type EntityStatePDU struct {
	Header
	EntityID           EntityID
	ForceID            ForceID
	EntityType         EntityType
	AlternateType      EntityType
	LinearVelocity     Vector3Float
	Location           Vector3Double
	Orientation        EulerAngles
	Appearance         Appearance
	DeadReckoning      DeadReckoning
	Marking            Marking
	Capabilities       uint32
	VariableParameters []VariableParameter
}

// NewEntityStatePDU creates an entity state PDU for id
func NewEntityStatePDU(version ProtocolVersion, exercise uint8, id EntityID, typ EntityType) *EntityStatePDU {
	return &EntityStatePDU{
		Header:        NewHeader(version, exercise, PDUTypeEntityState),
		EntityID:      id,
		EntityType:    typ,
		AlternateType: typ,
	}
}

// Len implements PDU
func (p *EntityStatePDU) Len() int {
	return EntityStateLength + VariableParamLength*len(p.VariableParameters)
}

// Validate reports parameter lists the 8-bit count cannot describe
func (p *EntityStatePDU) Validate() error {
	if len(p.VariableParameters) > maxVariableParams {
		return fmt.Errorf("%w: %d variable parameters", ErrPDUTooLarge, len(p.VariableParameters))
	}
	return nil
}

// EncodeTo implements PDU
func (p *EntityStatePDU) EncodeTo(w *Writer) {
	p.Header.encodeTo(w, p.Len())
	p.EntityID.EncodeTo(w)
	w.PutUint8(uint8(p.ForceID))
	w.PutUint8(uint8(len(p.VariableParameters)))
	p.EntityType.EncodeTo(w)
	p.AlternateType.EncodeTo(w)
	p.LinearVelocity.encodeTo(w)
	p.Location.encodeTo(w)
	p.Orientation.encodeTo(w)
	w.PutUint32(uint32(p.Appearance))
	p.DeadReckoning.encodeTo(w)
	p.Marking.encodeTo(w)
	w.PutUint32(p.Capabilities)
	for _, vp := range p.VariableParameters {
		vp.encodeTo(w)
	}
}

func decodeEntityState(h Header, r *Reader) (PDU, error) {
	p := &EntityStatePDU{Header: h}
	p.EntityID.DecodeFrom(r)
	p.ForceID = ForceID(r.Uint8())
	count := int(r.Uint8())
	p.EntityType.DecodeFrom(r)
	p.AlternateType.DecodeFrom(r)
	p.LinearVelocity.decodeFrom(r)
	p.Location.decodeFrom(r)
	p.Orientation.decodeFrom(r)
	p.Appearance = Appearance(r.Uint32())
	p.DeadReckoning.decodeFrom(r)
	p.Marking.decodeFrom(r)
	p.Capabilities = r.Uint32()
	if count > 0 {
		p.VariableParameters = make([]VariableParameter, count)
		for i := range p.VariableParameters {
			p.VariableParameters[i].decodeFrom(r)
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return p, nil
}
