package dis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, edition ProtocolVersion) *Codec {
	t.Helper()
	c, err := NewCodec(WithEdition(edition))
	require.NoError(t, err)
	return c
}

func TestDecodeHeader_Edition7Scenario(t *testing.T) {
	c := newTestCodec(t, ProtocolVersion7)
	data := []byte{0x07, 0x01, 0x01, 0x01, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x0C, 0x00, 0x00}

	h, n, err := c.DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, HeaderLength, n)
	assert.Equal(t, ProtocolVersion7, h.ProtocolVersion)
	assert.Equal(t, uint8(1), h.ExerciseID)
	assert.Equal(t, PDUTypeEntityState, h.PDUType)
	assert.Equal(t, FamilyEntityInformation, h.ProtocolFamily)
	assert.Equal(t, Timestamp(0xDEADBEEF), h.Timestamp)
	assert.Equal(t, uint16(12), h.Length)
	assert.Equal(t, PDUStatus(0), h.Status)
}

func TestHeader_RoundTripAllEditions(t *testing.T) {
	for _, edition := range []ProtocolVersion{ProtocolVersion5, ProtocolVersion6, ProtocolVersion7} {
		t.Run(edition.String(), func(t *testing.T) {
			c := newTestCodec(t, edition)
			h := Header{
				ProtocolVersion: edition,
				ExerciseID:      200,
				PDUType:         PDUTypeFire,
				ProtocolFamily:  FamilyWarfare,
				Timestamp:       NewTimestamp(1234567890, true),
				Length:          999, // recomputed on encode
			}
			if edition.HasStatus() {
				h.Status = PDUStatus(0).WithCoupledExtension(true)
			}

			data, err := c.Encode(&h)
			require.NoError(t, err)
			require.Len(t, data, HeaderLength)

			got, _, err := c.DecodeHeader(data)
			require.NoError(t, err)
			assert.Equal(t, h, got)
			assert.Equal(t, uint16(HeaderLength), got.Length)
		})
	}
}

func TestHeader_StatusOmittedInOlderEditions(t *testing.T) {
	c := newTestCodec(t, ProtocolVersion6)
	h := NewHeader(ProtocolVersion6, 1, PDUTypeEntityState)
	h.Status = PDUStatus(0xFF)

	data, err := c.Encode(&h)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, data[10:12])

	// A status byte on the wire is ignored by the older layout.
	data[10] = 0x08
	got, _, err := c.DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, PDUStatus(0), got.Status)
}

func TestHeader_StatusByteLayout(t *testing.T) {
	c := newTestCodec(t, ProtocolVersion7)
	h := NewHeader(ProtocolVersion7, 1, PDUTypeSignal)
	h.Status = PDUStatus(0).WithCoupledExtension(true)

	data, err := c.Encode(&h)
	require.NoError(t, err)
	assert.Equal(t, byte(0x08), data[10])
	assert.Equal(t, byte(0x00), data[11])
}

func TestDecodeHeader_Truncated(t *testing.T) {
	c := newTestCodec(t, ProtocolVersion7)
	_, _, err := c.DecodeHeader(make([]byte, HeaderLength-1))
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestDecodeHeader_PreservesUnknownCodes(t *testing.T) {
	c := newTestCodec(t, ProtocolVersion7)
	data := []byte{0x07, 0x09, 0xF0, 0xEE, 0, 0, 0, 0, 0x00, 0x0C, 0x00, 0x00}

	h, _, err := c.DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, PDUType(0xF0), h.PDUType)
	assert.Equal(t, ProtocolFamily(0xEE), h.ProtocolFamily)
	assert.Equal(t, "pdu-type(240)", h.PDUType.String())
}

func TestPDUStatus_Bits(t *testing.T) {
	var s PDUStatus
	assert.False(t, s.CoupledExtension())

	s = s.WithCoupledExtension(true)
	assert.True(t, s.CoupledExtension())
	assert.True(t, s.Bit(3))
	assert.Equal(t, PDUStatus(0x08), s)

	s = s.WithBit(0, true).WithCoupledExtension(false)
	assert.Equal(t, PDUStatus(0x01), s)
}

func TestNewCodec_RejectsUnsupportedEdition(t *testing.T) {
	_, err := NewCodec(WithEdition(ProtocolVersion2_4thDraft))
	assert.ErrorIs(t, err, ErrUnknownEdition)
}
