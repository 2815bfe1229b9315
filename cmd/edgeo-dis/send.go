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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeo/drivers/dis/dis"
	"github.com/edgeo/drivers/dis/dis/session"
)

var (
	sendCount    int
	sendInterval time.Duration

	sendEntityID   string
	sendEntityType string
	sendMarking    string
	sendForce      uint8
	sendLocation   string
	sendDeactivate bool

	sendRadioEntity string
	sendRadioNumber uint16
	sendData        string
	sendSampleRate  uint32
	sendSamples     uint16
	sendEncoding    uint16
	sendEncClass    uint8

	sendRecvState   uint16
	sendRecvPower   float32
	sendTransmitter string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Encode and send PDUs",
	Long: `Send builds a PDU from flags and transmits it to --dest or the broadcast address.

Examples:
  # Announce an entity every second until interrupted
  edgeo-dis send entity -b --id 1:2:3 --type 1.2.225.1.1 --marking EAGLE1 --count 0 --interval 1s

  # Tell listeners the entity is gone
  edgeo-dis send entity -b --id 1:2:3 --type 1.2.225.1.1 --deactivate

  # Send a signal PDU with raw payload
  edgeo-dis send signal -H 192.168.1.20 --radio 1:2:3 --radio-number 1 --data 0102030405

  # Report a receiver state
  edgeo-dis send receiver -b --radio 1:2:3 --state 2 --transmitter 4:5:6:1`,
}

var sendEntityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Send an entity state PDU",
	RunE:  runSendEntity,
}

var sendSignalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Send a signal PDU",
	RunE:  runSendSignal,
}

var sendReceiverCmd = &cobra.Command{
	Use:   "receiver",
	Short: "Send a receiver PDU",
	RunE:  runSendReceiver,
}

func init() {
	sendCmd.PersistentFlags().IntVarP(&sendCount, "count", "c", 1, "Number of PDUs to send (0 = until interrupted)")
	sendCmd.PersistentFlags().DurationVarP(&sendInterval, "interval", "i", time.Second, "Interval between PDUs")

	sendEntityCmd.Flags().StringVar(&sendEntityID, "id", "", "Entity ID (site:application:entity)")
	sendEntityCmd.Flags().StringVar(&sendEntityType, "type", "1", "Entity type (kind.domain.country.category.subcategory.specific.extra)")
	sendEntityCmd.Flags().StringVar(&sendMarking, "marking", "", "Marking text (up to 11 characters)")
	sendEntityCmd.Flags().Uint8Var(&sendForce, "force", uint8(dis.ForceFriendly), "Force ID")
	sendEntityCmd.Flags().StringVar(&sendLocation, "location", "0,0,0", "World location x,y,z in meters")
	sendEntityCmd.Flags().BoolVar(&sendDeactivate, "deactivate", false, "Set the deactivated appearance bit")
	sendEntityCmd.MarkFlagRequired("id")

	sendSignalCmd.Flags().StringVar(&sendRadioEntity, "radio", "", "Radio reference entity ID")
	sendSignalCmd.Flags().Uint16Var(&sendRadioNumber, "radio-number", 1, "Radio number")
	sendSignalCmd.Flags().StringVar(&sendData, "data", "", "Payload as hex")
	sendSignalCmd.Flags().Uint32Var(&sendSampleRate, "sample-rate", 8000, "Sample rate in Hz")
	sendSignalCmd.Flags().Uint16Var(&sendSamples, "samples", 0, "Number of samples")
	sendSignalCmd.Flags().Uint8Var(&sendEncClass, "encoding-class", uint8(dis.EncodingClassEncodedAudio), "Encoding class (0-3)")
	sendSignalCmd.Flags().Uint16Var(&sendEncoding, "encoding-type", dis.EncodingPCM16, "Encoding type")
	sendSignalCmd.MarkFlagRequired("radio")

	sendReceiverCmd.Flags().StringVar(&sendRadioEntity, "radio", "", "Radio reference entity ID")
	sendReceiverCmd.Flags().Uint16Var(&sendRadioNumber, "radio-number", 1, "Radio number")
	sendReceiverCmd.Flags().Uint16Var(&sendRecvState, "state", uint16(dis.ReceiverOnNotReceive), "Receiver state (0 off, 1 on, 2 receiving)")
	sendReceiverCmd.Flags().Float32Var(&sendRecvPower, "power", 0, "Received power in dBm")
	sendReceiverCmd.Flags().StringVar(&sendTransmitter, "transmitter", "", "Transmitter as site:application:entity:radio")
	sendReceiverCmd.MarkFlagRequired("radio")

	sendCmd.AddCommand(sendEntityCmd)
	sendCmd.AddCommand(sendSignalCmd)
	sendCmd.AddCommand(sendReceiverCmd)
}

func runSendEntity(cmd *cobra.Command, args []string) error {
	v, err := configuredEdition()
	if err != nil {
		return err
	}
	id, err := dis.ParseEntityID(sendEntityID)
	if err != nil {
		return fmt.Errorf("invalid --id: %w", err)
	}
	typ, err := dis.ParseEntityType(sendEntityType)
	if err != nil {
		return fmt.Errorf("invalid --type: %w", err)
	}
	loc, err := parseVector(sendLocation)
	if err != nil {
		return fmt.Errorf("invalid --location: %w", err)
	}

	pdu := dis.NewEntityStatePDU(v, configuredExercise(), id, typ)
	pdu.ForceID = dis.ForceID(sendForce)
	pdu.Marking = dis.NewMarking(sendMarking)
	pdu.Location = loc
	pdu.Appearance = pdu.Appearance.WithDeactivated(sendDeactivate)

	return sendRepeated(pdu)
}

func runSendSignal(cmd *cobra.Command, args []string) error {
	v, err := configuredEdition()
	if err != nil {
		return err
	}
	ref, err := dis.ParseEntityID(sendRadioEntity)
	if err != nil {
		return fmt.Errorf("invalid --radio: %w", err)
	}

	pdu := dis.NewSignalPDU(v, configuredExercise(), dis.RadioID{Entity: ref, Radio: sendRadioNumber})
	pdu.EncodingScheme = dis.NewEncodingScheme(dis.EncodingClass(sendEncClass), sendEncoding)
	pdu.SampleRate = sendSampleRate
	pdu.Samples = sendSamples
	if sendData != "" {
		if pdu.Data, err = parseHex(sendData); err != nil {
			return fmt.Errorf("invalid --data: %w", err)
		}
	}

	return sendRepeated(pdu)
}

func runSendReceiver(cmd *cobra.Command, args []string) error {
	v, err := configuredEdition()
	if err != nil {
		return err
	}
	ref, err := dis.ParseEntityID(sendRadioEntity)
	if err != nil {
		return fmt.Errorf("invalid --radio: %w", err)
	}

	pdu := dis.NewReceiverPDU(v, configuredExercise(), dis.RadioID{Entity: ref, Radio: sendRadioNumber})
	pdu.State = dis.ReceiverState(sendRecvState)
	pdu.ReceivedPower = sendRecvPower
	if sendTransmitter != "" {
		tx, err := parseRadioID(sendTransmitter)
		if err != nil {
			return fmt.Errorf("invalid --transmitter: %w", err)
		}
		pdu.TransmitterEntityID = tx.Entity
		pdu.TransmitterRadioNumber = tx.Radio
	}

	return sendRepeated(pdu)
}

// sendRepeated sends pdu sendCount times, refreshing its timestamp each time
func sendRepeated(pdu dis.PDU) error {
	codec, err := createCodec()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := openConn(ctx, false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if conn.Destination() == nil {
		conn.Close()
		return fmt.Errorf("destination required (--dest or --broadcast)")
	}

	s := session.New(conn, dis.NewDispatcher(codec, dis.WithLogger(logger)), nil,
		session.WithSendTimeout(viper.GetDuration("timeout")),
		session.WithLogger(logger),
	)
	defer s.Close()

	h := pdu.PDUHeader()
	out := newFormatter()
	for i := 0; sendCount == 0 || i < sendCount; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(sendInterval):
			}
		}

		h.Timestamp = dis.TimestampFromTime(time.Now(), false)
		if err := s.Send(ctx, pdu); err != nil {
			return err
		}
		if viper.GetBool("verbose") {
			out.PrintPDU(time.Now(), pdu, nil)
		}
	}

	fmt.Fprintf(os.Stderr, "Sent %d %s PDU(s) to %s\n", s.Metrics().PDUsSent.Value(), h.PDUType, conn.Destination())
	return nil
}

func parseVector(s string) (dis.Vector3Double, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return dis.Vector3Double{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return dis.Vector3Double{}, err
		}
		xyz[i] = f
	}
	return dis.Vector3Double{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// parseRadioID parses site:application:entity:radio or the s:a:e/r form printed by listen
func parseRadioID(s string) (dis.RadioID, error) {
	i := strings.LastIndexAny(s, ":./")
	if i < 0 {
		return dis.RadioID{}, fmt.Errorf("want site:application:entity:radio, got %q", s)
	}
	id, err := dis.ParseEntityID(s[:i])
	if err != nil {
		return dis.RadioID{}, err
	}
	n, err := strconv.ParseUint(s[i+1:], 10, 16)
	if err != nil {
		return dis.RadioID{}, fmt.Errorf("radio number: %w", err)
	}
	return dis.RadioID{Entity: id, Radio: uint16(n)}, nil
}
