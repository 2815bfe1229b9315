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
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampUnit is the duration of one timestamp tick (3600 s / 2^31)
const timestampUnit = float64(time.Hour) / float64(1<<31)

// Timestamp is the DIS time record: bits 31..1 count units past the hour,
// bit 0 is set for absolute (synchronized) time
type Timestamp uint32

// NewTimestamp builds a timestamp from an offset into the current hour
func NewTimestamp(pastHour time.Duration, absolute bool) Timestamp {
	d := pastHour % time.Hour
	if d < 0 {
		d += time.Hour
	}
	v := Timestamp(uint32(float64(d)/timestampUnit) << 1)
	if absolute {
		v |= 1
	}
	return v
}

// TimestampFromTime builds a timestamp from the position of t within its hour
func TimestampFromTime(t time.Time, absolute bool) Timestamp {
	return NewTimestamp(t.Sub(t.Truncate(time.Hour)), absolute)
}

// Absolute reports whether the timestamp is absolute
func (t Timestamp) Absolute() bool {
	return t&1 != 0
}

// Offset returns the time past the hour
func (t Timestamp) Offset() time.Duration {
	return time.Duration(float64(uint32(t)>>1) * timestampUnit)
}

func (t Timestamp) String() string {
	kind := "relative"
	if t.Absolute() {
		kind = "absolute"
	}
	return fmt.Sprintf("%s+%s", kind, t.Offset().Round(time.Microsecond))
}

// EntityID identifies an entity within an exercise
type EntityID struct {
	Site        uint16
	Application uint16
	Entity      uint16
}

// Hash returns the 64-bit identity hash used to key entity maps.
// The packing is injective, so distinct IDs never collide.
func (id EntityID) Hash() uint64 {
	return uint64(id.Site)<<32 | uint64(id.Application)<<16 | uint64(id.Entity)
}

// EntityIDFromHash reverses Hash
func EntityIDFromHash(h uint64) EntityID {
	return EntityID{
		Site:        uint16(h >> 32),
		Application: uint16(h >> 16),
		Entity:      uint16(h),
	}
}

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d:%d", id.Site, id.Application, id.Entity)
}

// DecodeFrom reads the 6-byte record
func (id *EntityID) DecodeFrom(r *Reader) {
	id.Site = r.Uint16()
	id.Application = r.Uint16()
	id.Entity = r.Uint16()
}

// EncodeTo writes the 6-byte record
func (id EntityID) EncodeTo(w *Writer) {
	w.PutUint16(id.Site)
	w.PutUint16(id.Application)
	w.PutUint16(id.Entity)
}

// ParseEntityID parses "site:application:entity" (dots are accepted too)
func ParseEntityID(s string) (EntityID, error) {
	parts := splitLevels(s)
	if len(parts) != 3 {
		return EntityID{}, fmt.Errorf("entity id %q: want site:application:entity", s)
	}
	var vals [3]uint16
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return EntityID{}, fmt.Errorf("entity id %q: %w", s, err)
		}
		vals[i] = uint16(v)
	}
	return EntityID{Site: vals[0], Application: vals[1], Entity: vals[2]}, nil
}

// EntityTypeLevels is the number of classification levels in an entity type
const EntityTypeLevels = 7

// EntityType is the hierarchical classification of an entity
type EntityType struct {
	Kind        EntityKind
	Domain      uint8
	Country     uint16
	Category    uint8
	Subcategory uint8
	Specific    uint8
	Extra       uint8
}

// Levels returns the classification as an ordered key, kind first
func (t EntityType) Levels() [EntityTypeLevels]int {
	return [EntityTypeLevels]int{
		int(t.Kind),
		int(t.Domain),
		int(t.Country),
		int(t.Category),
		int(t.Subcategory),
		int(t.Specific),
		int(t.Extra),
	}
}

func (t EntityType) String() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d.%d",
		t.Kind, t.Domain, t.Country, t.Category, t.Subcategory, t.Specific, t.Extra)
}

// DecodeFrom reads the 8-byte record
func (t *EntityType) DecodeFrom(r *Reader) {
	t.Kind = EntityKind(r.Uint8())
	t.Domain = r.Uint8()
	t.Country = r.Uint16()
	t.Category = r.Uint8()
	t.Subcategory = r.Uint8()
	t.Specific = r.Uint8()
	t.Extra = r.Uint8()
}

// EncodeTo writes the 8-byte record
func (t EntityType) EncodeTo(w *Writer) {
	w.PutUint8(uint8(t.Kind))
	w.PutUint8(t.Domain)
	w.PutUint16(t.Country)
	w.PutUint8(t.Category)
	w.PutUint8(t.Subcategory)
	w.PutUint8(t.Specific)
	w.PutUint8(t.Extra)
}

// ParseEntityType parses a dotted key such as "1.2.225.1.1.3.0".
// Missing trailing levels are zero.
func ParseEntityType(s string) (EntityType, error) {
	parts := splitLevels(s)
	if len(parts) == 0 || len(parts) > EntityTypeLevels {
		return EntityType{}, fmt.Errorf("entity type %q: want 1 to %d levels", s, EntityTypeLevels)
	}
	var vals [EntityTypeLevels]uint64
	for i, p := range parts {
		bits := 8
		if i == 2 {
			bits = 16
		}
		v, err := strconv.ParseUint(p, 10, bits)
		if err != nil {
			return EntityType{}, fmt.Errorf("entity type %q level %d: %w", s, i, err)
		}
		vals[i] = v
	}
	return EntityType{
		Kind:        EntityKind(vals[0]),
		Domain:      uint8(vals[1]),
		Country:     uint16(vals[2]),
		Category:    uint8(vals[3]),
		Subcategory: uint8(vals[4]),
		Specific:    uint8(vals[5]),
		Extra:       uint8(vals[6]),
	}, nil
}

func splitLevels(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ':' })
}

// Vector3Float is a single-precision vector
type Vector3Float struct {
	X, Y, Z float32
}

func (v *Vector3Float) decodeFrom(r *Reader) {
	v.X = r.Float32()
	v.Y = r.Float32()
	v.Z = r.Float32()
}

func (v Vector3Float) encodeTo(w *Writer) {
	w.PutFloat32(v.X)
	w.PutFloat32(v.Y)
	w.PutFloat32(v.Z)
}

// Vector3Double is a double-precision world coordinate
type Vector3Double struct {
	X, Y, Z float64
}

func (v *Vector3Double) decodeFrom(r *Reader) {
	v.X = r.Float64()
	v.Y = r.Float64()
	v.Z = r.Float64()
}

func (v Vector3Double) encodeTo(w *Writer) {
	w.PutFloat64(v.X)
	w.PutFloat64(v.Y)
	w.PutFloat64(v.Z)
}

// EulerAngles is an orientation in radians
type EulerAngles struct {
	Psi, Theta, Phi float32
}

func (e *EulerAngles) decodeFrom(r *Reader) {
	e.Psi = r.Float32()
	e.Theta = r.Float32()
	e.Phi = r.Float32()
}

func (e EulerAngles) encodeTo(w *Writer) {
	w.PutFloat32(e.Psi)
	w.PutFloat32(e.Theta)
	w.PutFloat32(e.Phi)
}

// Appearance is the 32-bit entity appearance bitfield
type Appearance uint32

const (
	appearanceDamageShift = 3
	appearanceDamageMask  = 0x3 << appearanceDamageShift
	appearanceFrozen      = 1 << 21
	appearanceDeactivated = 1 << 23
)

// Deactivated reports the state bit; a deactivated entity has left the exercise
func (a Appearance) Deactivated() bool {
	return a&appearanceDeactivated != 0
}

// WithDeactivated returns a with the state bit set or cleared
func (a Appearance) WithDeactivated(v bool) Appearance {
	if v {
		return a | appearanceDeactivated
	}
	return a &^ appearanceDeactivated
}

// Frozen reports the frozen-status bit
func (a Appearance) Frozen() bool {
	return a&appearanceFrozen != 0
}

// Damage returns the 2-bit damage level (0 none, 3 destroyed)
func (a Appearance) Damage() uint8 {
	return uint8((a & appearanceDamageMask) >> appearanceDamageShift)
}

// DeadReckoning holds the dead-reckoning parameters record
type DeadReckoning struct {
	Algorithm          uint8
	Parameters         [deadReckoningOpaque]byte
	LinearAcceleration Vector3Float
	AngularVelocity    Vector3Float
}

func (d *DeadReckoning) decodeFrom(r *Reader) {
	d.Algorithm = r.Uint8()
	r.Read(d.Parameters[:])
	d.LinearAcceleration.decodeFrom(r)
	d.AngularVelocity.decodeFrom(r)
}

func (d DeadReckoning) encodeTo(w *Writer) {
	w.PutUint8(d.Algorithm)
	w.PutBytes(d.Parameters[:])
	d.LinearAcceleration.encodeTo(w)
	d.AngularVelocity.encodeTo(w)
}

// Marking is the entity's 11-character label
type Marking struct {
	CharacterSet uint8
	Text         [markingCharsLength]byte
}

// NewMarking builds an ASCII marking, truncating s to 11 bytes
func NewMarking(s string) Marking {
	m := Marking{CharacterSet: 1}
	copy(m.Text[:], s)
	return m
}

func (m Marking) String() string {
	return string(bytes.TrimRight(m.Text[:], "\x00 "))
}

func (m *Marking) decodeFrom(r *Reader) {
	m.CharacterSet = r.Uint8()
	r.Read(m.Text[:])
}

func (m Marking) encodeTo(w *Writer) {
	w.PutUint8(m.CharacterSet)
	w.PutBytes(m.Text[:])
}

// VariableParameter is one 16-byte articulation/attachment record
type VariableParameter struct {
	RecordType uint8
	Data       [variableParamOpaque]byte
}

func (p *VariableParameter) decodeFrom(r *Reader) {
	p.RecordType = r.Uint8()
	r.Read(p.Data[:])
}

func (p VariableParameter) encodeTo(w *Writer) {
	w.PutUint8(p.RecordType)
	w.PutBytes(p.Data[:])
}
