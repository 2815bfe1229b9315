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
	"github.com/edgeo/drivers/dis/dis/entity"
	"github.com/edgeo/drivers/dis/dis/session"
)

var (
	listenMatcher   string
	listenHeartbeat float64
	listenTick      time.Duration
	listenTypes     []string
	listenQuiet     bool
	listenUpdates   bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Receive PDUs and track remote entities",
	Long: `Listen binds the DIS port, decodes every PDU that passes the filters and
tracks remote entities from their entity state PDUs. Entities silent for
longer than the heartbeat are reported as expired.

Without a matcher file every entity type maps to the prototype "remote".

Examples:
  # Print everything on the default port
  edgeo-dis listen -x 0

  # Only signal and receiver PDUs of exercise 3
  edgeo-dis listen -x 3 --types signal,receiver

  # Lifecycle events only, 12 second heartbeat
  edgeo-dis listen --quiet --heartbeat 12 --matcher prototypes.yaml`,

	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVarP(&listenMatcher, "matcher", "m", "", "Prototype matcher file (.yaml or .toml)")
	listenCmd.Flags().Float64Var(&listenHeartbeat, "heartbeat", entity.DefaultHeartbeat.Seconds(), "Heartbeat in seconds")
	listenCmd.Flags().DurationVar(&listenTick, "tick", session.DefaultTickInterval, "Expiry check interval")
	listenCmd.Flags().StringSliceVar(&listenTypes, "types", nil, "PDU types to accept (names or numbers)")
	listenCmd.Flags().BoolVarP(&listenQuiet, "quiet", "q", false, "Print lifecycle events only")
	listenCmd.Flags().BoolVar(&listenUpdates, "updates", false, "Also print entity updates")

	viper.BindPFlag("listen.matcher", listenCmd.Flags().Lookup("matcher"))
	viper.BindPFlag("listen.heartbeat", listenCmd.Flags().Lookup("heartbeat"))
	viper.BindPFlag("listen.tick", listenCmd.Flags().Lookup("tick"))
}

// trackedEntity is the handle bound to each remote entity by the CLI
type trackedEntity struct {
	proto entity.Prototype
}

func (*trackedEntity) Release() {}

func runListen(cmd *cobra.Command, args []string) error {
	codec, err := createCodec()
	if err != nil {
		return err
	}

	filters, err := listenFilters()
	if err != nil {
		return err
	}
	opts := []dis.DispatcherOption{dis.WithLogger(logger)}
	for _, f := range filters {
		opts = append(opts, dis.WithFilter(f))
	}
	dispatcher := dis.NewDispatcher(codec, opts...)

	matcher, err := loadListenMatcher()
	if err != nil {
		return err
	}

	out := newFormatter()
	manager := entity.NewManager(matcher,
		entity.InstantiatorFunc(func(p entity.Prototype, _ *dis.EntityStatePDU, _ entity.Container) (entity.Handle, error) {
			return &trackedEntity{proto: p}, nil
		}),
		entity.WithHeartbeatSeconds(viper.GetFloat64("listen.heartbeat")),
		entity.WithLogger(logger),
		entity.OnCreated(func(e *entity.RemoteEntity) {
			out.PrintEvent(time.Now(), "created",
				Field{"entity", e.ID.String()},
				Field{"entity_type", e.State.EntityType.String()},
				Field{"prototype", string(e.Prototype)},
				Field{"marking", e.State.Marking.String()})
		}),
		entity.OnUpdated(func(e *entity.RemoteEntity) {
			if listenUpdates {
				out.PrintEvent(time.Now(), "updated",
					Field{"entity", e.ID.String()},
					Field{"updates", e.Updates})
			}
		}),
		entity.OnRemoved(func(e *entity.RemoteEntity, reason entity.RemovalReason) {
			out.PrintEvent(time.Now(), "removed",
				Field{"entity", e.ID.String()},
				Field{"reason", reason.String()},
				Field{"lifetime", e.LastUpdate.Sub(e.FirstSeen).Round(time.Millisecond)})
		}),
	)

	if !listenQuiet {
		dispatcher.SubscribeAll(func(pdu dis.PDU) {
			var data []byte
			if out.format == FormatRaw {
				data, _ = codec.Encode(pdu)
			}
			out.PrintPDU(time.Now(), pdu, data)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := openConn(ctx, true)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	s := session.New(conn, dispatcher, manager,
		session.WithTickInterval(viper.GetDuration("listen.tick")),
		session.WithLogger(logger),
	)
	defer s.Close()

	fmt.Fprintf(os.Stderr, "Listening on %s (edition %d, heartbeat %.1fs)\n",
		conn.LocalAddr(), codec.Edition(), manager.Heartbeat().Seconds())
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop")

	if err := s.Run(ctx); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr)
	printListenSummary(s, manager)
	return nil
}

func listenFilters() ([]dis.Filter, error) {
	var filters []dis.Filter
	if x := configuredExercise(); x != 0 {
		filters = append(filters, dis.ExerciseFilter(x))
	}
	if len(listenTypes) > 0 {
		types := make([]dis.PDUType, 0, len(listenTypes))
		for _, s := range listenTypes {
			t, err := parsePDUType(s)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		filters = append(filters, dis.TypeFilter(types...))
	}
	return filters, nil
}

func loadListenMatcher() (*entity.Matcher, error) {
	path := viper.GetString("listen.matcher")
	if path == "" {
		return entity.NewMatcher(entity.NewNode(0, "root", "remote")), nil
	}
	return entity.LoadMatcher(path)
}

// parsePDUType accepts a PDU type name (as printed) or its number
func parsePDUType(s string) (dis.PDUType, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 255 {
			return 0, fmt.Errorf("PDU type %d out of range", n)
		}
		return dis.PDUType(n), nil
	}
	name := strings.ReplaceAll(strings.ReplaceAll(s, "-", ""), "_", "")
	for i := 0; i < 256; i++ {
		t := dis.PDUType(i)
		if strings.EqualFold(t.String(), name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown PDU type %q", s)
}

func printListenSummary(s *session.Session, m *entity.Manager) {
	d := s.Metrics().Snapshot()
	e := m.Metrics().Snapshot()
	NewFormatter(string(FormatTable)).PrintKeyValue([]Field{
		{"Datagrams", d.DatagramsReceived},
		{"PDUs decoded", d.PDUsDecoded},
		{"PDUs filtered", d.PDUsFiltered},
		{"Unknown PDUs", d.PDUsUnknown},
		{"Decode errors", d.DecodeErrors},
		{"Entities created", e.Created},
		{"Entities expired", e.Expired},
		{"Entities deactivated", e.Deactivated},
		{"Unresolved types", e.Unresolved},
		{"Tracked now", e.RemoteEntities},
	})
}
