package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/edgeo/drivers/dis/dis"
)

// OutputFormat represents output format types
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatRaw   OutputFormat = "raw"
)

// Formatter handles output formatting
type Formatter struct {
	format OutputFormat
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(format string) *Formatter {
	return &Formatter{
		format: OutputFormat(format),
		writer: os.Stdout,
	}
}

// newFormatter creates a formatter for the configured output format
func newFormatter() *Formatter {
	return NewFormatter(viper.GetString("output"))
}

// SetWriter sets the output writer
func (f *Formatter) SetWriter(w io.Writer) {
	f.writer = w
}

// Printf formats and prints output
func (f *Formatter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(f.writer, format, args...)
}

// Println prints a line
func (f *Formatter) Println(args ...interface{}) {
	fmt.Fprintln(f.writer, args...)
}

// PrintTable prints data in table format
func (f *Formatter) PrintTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		fmt.Fprintf(f.writer, "%-*s ", widths[i], h)
	}
	fmt.Fprintln(f.writer)

	for i := range headers {
		fmt.Fprint(f.writer, strings.Repeat("-", widths[i]), " ")
	}
	fmt.Fprintln(f.writer)

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(f.writer, "%-*s ", widths[i], cell)
			}
		}
		fmt.Fprintln(f.writer)
	}
}

// PrintKeyValue prints key-value pairs
func (f *Formatter) PrintKeyValue(pairs []Field) {
	maxKeyLen := 0
	for _, p := range pairs {
		if len(p.Key) > maxKeyLen {
			maxKeyLen = len(p.Key)
		}
	}

	for _, p := range pairs {
		fmt.Fprintf(f.writer, "%-*s: %v\n", maxKeyLen, p.Key, p.Value)
	}
}

// PrintPDU prints one decoded PDU. data is the encoded form, used by raw output.
func (f *Formatter) PrintPDU(t time.Time, pdu dis.PDU, data []byte) {
	fields := describePDU(pdu)

	switch f.format {
	case FormatJSON:
		obj := make(map[string]interface{}, len(fields)+1)
		obj["time"] = t.Format(time.RFC3339Nano)
		for _, fl := range fields {
			obj[fl.Key] = fl.Value
		}
		out, err := json.Marshal(obj)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Fprintln(f.writer, string(out))
	case FormatRaw:
		fmt.Fprintf(f.writer, "[%s] %s\n", t.Format("15:04:05.000"), hex.EncodeToString(data))
	default:
		parts := make([]string, 0, len(fields))
		for _, fl := range fields[1:] {
			parts = append(parts, fmt.Sprintf("%s=%v", fl.Key, fl.Value))
		}
		fmt.Fprintf(f.writer, "[%s] %-14s %s\n", t.Format("15:04:05.000"), fields[0].Value, strings.Join(parts, " "))
	}
}

// PrintEvent prints a lifecycle event
func (f *Formatter) PrintEvent(t time.Time, event string, fields ...Field) {
	switch f.format {
	case FormatJSON:
		obj := map[string]interface{}{
			"time":  t.Format(time.RFC3339Nano),
			"event": event,
		}
		for _, fl := range fields {
			obj[fl.Key] = fl.Value
		}
		out, _ := json.Marshal(obj)
		fmt.Fprintln(f.writer, string(out))
	default:
		parts := make([]string, 0, len(fields))
		for _, fl := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", fl.Key, fl.Value))
		}
		fmt.Fprintf(f.writer, "[%s] * %-12s %s\n", t.Format("15:04:05.000"), event, strings.Join(parts, " "))
	}
}

// Field is an ordered key-value pair
type Field struct {
	Key   string
	Value interface{}
}

// describePDU flattens a PDU into ordered fields; the first is always the type
func describePDU(pdu dis.PDU) []Field {
	h := pdu.PDUHeader()
	fields := []Field{
		{"type", h.PDUType.String()},
		{"version", h.ProtocolVersion.String()},
		{"exercise", h.ExerciseID},
		{"family", h.ProtocolFamily.String()},
		{"timestamp", h.Timestamp.String()},
		{"length", h.Length},
	}
	if h.ProtocolVersion.HasStatus() {
		fields = append(fields, Field{"status", fmt.Sprintf("0x%02x", uint8(h.Status))})
	}

	switch p := pdu.(type) {
	case *dis.EntityStatePDU:
		fields = append(fields,
			Field{"entity", p.EntityID.String()},
			Field{"force", p.ForceID.String()},
			Field{"entity_type", p.EntityType.String()},
			Field{"marking", p.Marking.String()},
			Field{"location", fmt.Sprintf("%.1f,%.1f,%.1f", p.Location.X, p.Location.Y, p.Location.Z)},
			Field{"appearance", fmt.Sprintf("0x%08x", uint32(p.Appearance))},
			Field{"deactivated", p.Appearance.Deactivated()},
			Field{"parameters", len(p.VariableParameters)},
		)
	case *dis.SignalPDU:
		fields = append(fields,
			Field{"radio", p.RadioID().String()},
			Field{"encoding", p.EncodingScheme.String()},
			Field{"sample_rate", p.SampleRate},
			Field{"samples", p.Samples},
			Field{"data_bits", p.DataLengthBits()},
		)
	case *dis.ReceiverPDU:
		fields = append(fields,
			Field{"radio", p.RadioID().String()},
			Field{"state", p.State.String()},
			Field{"power", p.ReceivedPower},
			Field{"transmitter", p.Transmitter().String()},
		)
	case *dis.RawPDU:
		fields = append(fields, Field{"body_bytes", len(p.Body)})
	}
	return fields
}

// parseHex decodes hex with optional whitespace, colons or a 0x prefix
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}
