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

// Package dis provides a Distributed Interactive Simulation (IEEE 1278.1) PDU codec.
package dis

import "fmt"

// DefaultPort is the customary DIS UDP port
const DefaultPort = 3000

// MaxPDULength is the largest PDU the 16-bit length field can describe
const MaxPDULength = 0xFFFF

// MaxDatagramLength is the largest datagram read from the network
const MaxDatagramLength = 8192

// Fixed record sizes
const (
	HeaderLength        = 12
	EntityIDLength      = 6
	EntityTypeLength    = 8
	RadioHeaderLength   = HeaderLength + EntityIDLength + 2
	SignalFixedLength   = RadioHeaderLength + 12
	ReceiverLength      = RadioHeaderLength + 16
	EntityStateLength   = 144
	VariableParamLength = 16
	DeadReckoningLength = 40
	MarkingLength       = 12
	markingCharsLength  = MarkingLength - 1
	deadReckoningOpaque = 15
	variableParamOpaque = VariableParamLength - 1
)

// ProtocolVersion identifies the edition of the standard
type ProtocolVersion uint8

const (
	ProtocolVersionOther         ProtocolVersion = 0
	ProtocolVersionDISv1         ProtocolVersion = 1
	ProtocolVersion1278_1993     ProtocolVersion = 2
	ProtocolVersion2_3rdDraft    ProtocolVersion = 3
	ProtocolVersion2_4thDraft    ProtocolVersion = 4
	ProtocolVersion5             ProtocolVersion = 5 // IEEE 1278.1-1995
	ProtocolVersion6             ProtocolVersion = 6 // IEEE 1278.1A-1998
	ProtocolVersion7             ProtocolVersion = 7 // IEEE 1278.1-2012
)

func (v ProtocolVersion) String() string {
	names := map[ProtocolVersion]string{
		ProtocolVersionOther:      "other",
		ProtocolVersionDISv1:      "DIS-1.0",
		ProtocolVersion1278_1993:  "IEEE-1278-1993",
		ProtocolVersion2_3rdDraft: "DIS-2.0-draft3",
		ProtocolVersion2_4thDraft: "DIS-2.0-draft4",
		ProtocolVersion5:          "IEEE-1278.1-1995",
		ProtocolVersion6:          "IEEE-1278.1A-1998",
		ProtocolVersion7:          "IEEE-1278.1-2012",
	}
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("version(%d)", v)
}

// Supported reports whether v is one of the editions the codec can lay out
func (v ProtocolVersion) Supported() bool {
	return v == ProtocolVersion5 || v == ProtocolVersion6 || v == ProtocolVersion7
}

// HasStatus reports whether headers of this edition carry the PDU status byte
func (v ProtocolVersion) HasStatus() bool {
	return v >= ProtocolVersion7
}

// PDUType is the PDU type code carried in the header
type PDUType uint8

const (
	PDUTypeOther                   PDUType = 0
	PDUTypeEntityState             PDUType = 1
	PDUTypeFire                    PDUType = 2
	PDUTypeDetonation              PDUType = 3
	PDUTypeCollision               PDUType = 4
	PDUTypeServiceRequest          PDUType = 5
	PDUTypeResupplyOffer           PDUType = 6
	PDUTypeResupplyReceived        PDUType = 7
	PDUTypeResupplyCancel          PDUType = 8
	PDUTypeRepairComplete          PDUType = 9
	PDUTypeRepairResponse          PDUType = 10
	PDUTypeCreateEntity            PDUType = 11
	PDUTypeRemoveEntity            PDUType = 12
	PDUTypeStartResume             PDUType = 13
	PDUTypeStopFreeze              PDUType = 14
	PDUTypeAcknowledge             PDUType = 15
	PDUTypeActionRequest           PDUType = 16
	PDUTypeActionResponse          PDUType = 17
	PDUTypeDataQuery               PDUType = 18
	PDUTypeSetData                 PDUType = 19
	PDUTypeData                    PDUType = 20
	PDUTypeEventReport             PDUType = 21
	PDUTypeComment                 PDUType = 22
	PDUTypeElectromagneticEmission PDUType = 23
	PDUTypeDesignator              PDUType = 24
	PDUTypeTransmitter             PDUType = 25
	PDUTypeSignal                  PDUType = 26
	PDUTypeReceiver                PDUType = 27
	PDUTypeIFF                     PDUType = 28
	PDUTypeUnderwaterAcoustic      PDUType = 29
	PDUTypeIntercomSignal          PDUType = 31
	PDUTypeIntercomControl         PDUType = 32
	PDUTypeEntityStateUpdate       PDUType = 67
	PDUTypeAttribute               PDUType = 72
)

func (t PDUType) String() string {
	names := map[PDUType]string{
		PDUTypeOther:                   "Other",
		PDUTypeEntityState:             "EntityState",
		PDUTypeFire:                    "Fire",
		PDUTypeDetonation:              "Detonation",
		PDUTypeCollision:               "Collision",
		PDUTypeServiceRequest:          "ServiceRequest",
		PDUTypeResupplyOffer:           "ResupplyOffer",
		PDUTypeResupplyReceived:        "ResupplyReceived",
		PDUTypeResupplyCancel:          "ResupplyCancel",
		PDUTypeRepairComplete:          "RepairComplete",
		PDUTypeRepairResponse:          "RepairResponse",
		PDUTypeCreateEntity:            "CreateEntity",
		PDUTypeRemoveEntity:            "RemoveEntity",
		PDUTypeStartResume:             "StartResume",
		PDUTypeStopFreeze:              "StopFreeze",
		PDUTypeAcknowledge:             "Acknowledge",
		PDUTypeActionRequest:           "ActionRequest",
		PDUTypeActionResponse:          "ActionResponse",
		PDUTypeDataQuery:               "DataQuery",
		PDUTypeSetData:                 "SetData",
		PDUTypeData:                    "Data",
		PDUTypeEventReport:             "EventReport",
		PDUTypeComment:                 "Comment",
		PDUTypeElectromagneticEmission: "ElectromagneticEmission",
		PDUTypeDesignator:              "Designator",
		PDUTypeTransmitter:             "Transmitter",
		PDUTypeSignal:                  "Signal",
		PDUTypeReceiver:                "Receiver",
		PDUTypeIFF:                     "IFF",
		PDUTypeUnderwaterAcoustic:      "UnderwaterAcoustic",
		PDUTypeIntercomSignal:          "IntercomSignal",
		PDUTypeIntercomControl:         "IntercomControl",
		PDUTypeEntityStateUpdate:       "EntityStateUpdate",
		PDUTypeAttribute:               "Attribute",
	}
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("pdu-type(%d)", t)
}

// ProtocolFamily groups related PDU types
type ProtocolFamily uint8

const (
	FamilyOther                           ProtocolFamily = 0
	FamilyEntityInformation               ProtocolFamily = 1
	FamilyWarfare                         ProtocolFamily = 2
	FamilyLogistics                       ProtocolFamily = 3
	FamilyRadioCommunications             ProtocolFamily = 4
	FamilySimulationManagement            ProtocolFamily = 5
	FamilyDistributedEmissionRegeneration ProtocolFamily = 6
	FamilyEntityManagement                ProtocolFamily = 7
	FamilyMinefield                       ProtocolFamily = 8
	FamilySyntheticEnvironment            ProtocolFamily = 9
	FamilySimulationManagementReliability ProtocolFamily = 10
	FamilyLiveEntity                      ProtocolFamily = 11
	FamilyNonRealTime                     ProtocolFamily = 12
	FamilyInformationOperations           ProtocolFamily = 13
)

func (f ProtocolFamily) String() string {
	names := map[ProtocolFamily]string{
		FamilyOther:                           "other",
		FamilyEntityInformation:               "entity-information",
		FamilyWarfare:                         "warfare",
		FamilyLogistics:                       "logistics",
		FamilyRadioCommunications:             "radio-communications",
		FamilySimulationManagement:            "simulation-management",
		FamilyDistributedEmissionRegeneration: "distributed-emission-regeneration",
		FamilyEntityManagement:                "entity-management",
		FamilyMinefield:                       "minefield",
		FamilySyntheticEnvironment:            "synthetic-environment",
		FamilySimulationManagementReliability: "simulation-management-reliability",
		FamilyLiveEntity:                      "live-entity",
		FamilyNonRealTime:                     "non-real-time",
		FamilyInformationOperations:           "information-operations",
	}
	if name, ok := names[f]; ok {
		return name
	}
	return fmt.Sprintf("family(%d)", f)
}

// familyOf maps the PDU types this package encodes to their protocol family
var familyOf = map[PDUType]ProtocolFamily{
	PDUTypeEntityState:       FamilyEntityInformation,
	PDUTypeCollision:         FamilyEntityInformation,
	PDUTypeEntityStateUpdate: FamilyEntityInformation,
	PDUTypeFire:              FamilyWarfare,
	PDUTypeDetonation:        FamilyWarfare,
	PDUTypeTransmitter:       FamilyRadioCommunications,
	PDUTypeSignal:            FamilyRadioCommunications,
	PDUTypeReceiver:          FamilyRadioCommunications,
	PDUTypeIntercomSignal:    FamilyRadioCommunications,
	PDUTypeIntercomControl:   FamilyRadioCommunications,
	PDUTypeCreateEntity:      FamilySimulationManagement,
	PDUTypeRemoveEntity:      FamilySimulationManagement,
	PDUTypeStartResume:       FamilySimulationManagement,
	PDUTypeStopFreeze:        FamilySimulationManagement,
	PDUTypeAcknowledge:       FamilySimulationManagement,
	PDUTypeComment:           FamilySimulationManagement,
}

// Family returns the protocol family the standard assigns to t
func (t PDUType) Family() ProtocolFamily {
	return familyOf[t]
}

// ForceID identifies the side an entity belongs to
type ForceID uint8

const (
	ForceOther    ForceID = 0
	ForceFriendly ForceID = 1
	ForceOpposing ForceID = 2
	ForceNeutral  ForceID = 3
)

func (f ForceID) String() string {
	switch f {
	case ForceOther:
		return "other"
	case ForceFriendly:
		return "friendly"
	case ForceOpposing:
		return "opposing"
	case ForceNeutral:
		return "neutral"
	default:
		return fmt.Sprintf("force(%d)", f)
	}
}

// EntityKind is the first level of the entity type classification
type EntityKind uint8

const (
	KindOther           EntityKind = 0
	KindPlatform        EntityKind = 1
	KindMunition        EntityKind = 2
	KindLifeForm        EntityKind = 3
	KindEnvironmental   EntityKind = 4
	KindCulturalFeature EntityKind = 5
	KindSupply          EntityKind = 6
	KindRadio           EntityKind = 7
	KindExpendable      EntityKind = 8
	KindSensorEmitter   EntityKind = 9
)

func (k EntityKind) String() string {
	names := map[EntityKind]string{
		KindOther:           "other",
		KindPlatform:        "platform",
		KindMunition:        "munition",
		KindLifeForm:        "life-form",
		KindEnvironmental:   "environmental",
		KindCulturalFeature: "cultural-feature",
		KindSupply:          "supply",
		KindRadio:           "radio",
		KindExpendable:      "expendable",
		KindSensorEmitter:   "sensor-emitter",
	}
	if name, ok := names[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ReceiverState is the operational state reported by a receiver PDU
type ReceiverState uint16

const (
	ReceiverOff          ReceiverState = 0
	ReceiverOnNotReceive ReceiverState = 1
	ReceiverOnReceiving  ReceiverState = 2
)

func (s ReceiverState) String() string {
	switch s {
	case ReceiverOff:
		return "off"
	case ReceiverOnNotReceive:
		return "on-not-receiving"
	case ReceiverOnReceiving:
		return "on-receiving"
	default:
		return fmt.Sprintf("receiver-state(%d)", s)
	}
}

// EncodingClass is the top two bits of a signal encoding scheme
type EncodingClass uint8

const (
	EncodingClassEncodedAudio      EncodingClass = 0
	EncodingClassRawBinary         EncodingClass = 1
	EncodingClassApplicationData   EncodingClass = 2
	EncodingClassDatabaseIndex     EncodingClass = 3
)

func (c EncodingClass) String() string {
	switch c {
	case EncodingClassEncodedAudio:
		return "encoded-audio"
	case EncodingClassRawBinary:
		return "raw-binary"
	case EncodingClassApplicationData:
		return "application-data"
	case EncodingClassDatabaseIndex:
		return "database-index"
	default:
		return fmt.Sprintf("encoding-class(%d)", c)
	}
}

// Encoding types for the encoded-audio class
const (
	EncodingMuLaw8    uint16 = 1
	EncodingCVSD      uint16 = 2
	EncodingADPCM     uint16 = 3
	EncodingPCM16     uint16 = 4
	EncodingPCM8      uint16 = 5
	EncodingVQ        uint16 = 6
	EncodingGSMFull   uint16 = 8
	EncodingGSMHalf   uint16 = 9
	EncodingPCM16LE   uint16 = 100
)
