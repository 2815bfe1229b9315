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
	"errors"
	"log/slog"
	"time"
)

// Filter inspects a decoded header before the body is decoded.
// Returning false drops the PDU.
type Filter func(h *Header) bool

// Handler receives a fully decoded PDU
type Handler func(pdu PDU)

// Dispatcher decodes inbound datagrams, runs the filter chain and
// delivers PDUs to the handlers subscribed to their type.
// It is not safe for concurrent use.
type Dispatcher struct {
	codec    *Codec
	filters  []Filter
	handlers map[PDUType][]Handler
	all      []Handler
	metrics  *Metrics
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher decoding with codec
func NewDispatcher(codec *Codec, opts ...DispatcherOption) *Dispatcher {
	options := defaultDispatcherOptions()
	for _, opt := range opts {
		opt(options)
	}

	metrics := options.metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	return &Dispatcher{
		codec:    codec,
		filters:  options.filters,
		handlers: make(map[PDUType][]Handler),
		metrics:  metrics,
		logger:   options.logger,
	}
}

// Codec returns the codec used for decoding
func (d *Dispatcher) Codec() *Codec {
	return d.codec
}

// Metrics returns the dispatcher metrics
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// AddFilter appends f to the chain; filters run in registration order
func (d *Dispatcher) AddFilter(f Filter) {
	d.filters = append(d.filters, f)
}

// Subscribe registers h for PDUs of type t
func (d *Dispatcher) Subscribe(t PDUType, h Handler) {
	d.handlers[t] = append(d.handlers[t], h)
}

// SubscribeAll registers h for every PDU that passes the filters
func (d *Dispatcher) SubscribeAll(h Handler) {
	d.all = append(d.all, h)
}

// Dispatch processes one datagram, which may bundle several PDUs.
// A failure in one PDU does not prevent delivery of the others.
func (d *Dispatcher) Dispatch(datagram []byte) error {
	d.metrics.DatagramsReceived.Inc()
	d.metrics.BytesReceived.Add(int64(len(datagram)))
	d.metrics.RecordActivity()

	pdus, splitErr := d.codec.Split(datagram)

	var errs []error
	for _, data := range pdus {
		if err := d.dispatchOne(data); err != nil {
			errs = append(errs, err)
		}
	}
	if splitErr != nil {
		d.metrics.DecodeErrors.Inc()
		d.logger.Debug("malformed datagram", slog.String("error", splitErr.Error()))
		errs = append(errs, splitErr)
	}
	return errors.Join(errs...)
}

// DispatchBatch processes datagrams in order and returns the number that
// failed, fully or partly. Errors are logged, never returned.
func (d *Dispatcher) DispatchBatch(datagrams [][]byte) int {
	failed := 0
	for _, dg := range datagrams {
		if err := d.Dispatch(dg); err != nil {
			failed++
		}
	}
	return failed
}

func (d *Dispatcher) dispatchOne(data []byte) error {
	start := time.Now()

	h, _, err := d.codec.DecodeHeader(data)
	if err != nil {
		d.metrics.DecodeErrors.Inc()
		d.logger.Debug("invalid header", slog.String("error", err.Error()))
		return err
	}

	for _, f := range d.filters {
		if !f(&h) {
			d.metrics.PDUsFiltered.Inc()
			return nil
		}
	}

	pdu, err := d.codec.DecodeBody(h, data)
	if err != nil {
		d.metrics.DecodeErrors.Inc()
		d.logger.Debug("invalid PDU",
			slog.String("type", h.PDUType.String()),
			slog.String("error", err.Error()),
		)
		return err
	}
	d.metrics.DecodeLatency.Record(time.Since(start))
	d.metrics.PDUsDecoded.Inc()

	if _, raw := pdu.(*RawPDU); raw {
		d.metrics.PDUsUnknown.Inc()
	}

	for _, handler := range d.handlers[h.PDUType] {
		handler(pdu)
	}
	for _, handler := range d.all {
		handler(pdu)
	}
	return nil
}

// ExerciseFilter accepts only PDUs of the given exercise
func ExerciseFilter(exercise uint8) Filter {
	return func(h *Header) bool {
		return h.ExerciseID == exercise
	}
}

// VersionFilter accepts only PDUs declaring one of versions
func VersionFilter(versions ...ProtocolVersion) Filter {
	return func(h *Header) bool {
		for _, v := range versions {
			if h.ProtocolVersion == v {
				return true
			}
		}
		return false
	}
}

// FamilyFilter accepts only PDUs of the given protocol families
func FamilyFilter(families ...ProtocolFamily) Filter {
	return func(h *Header) bool {
		for _, f := range families {
			if h.ProtocolFamily == f {
				return true
			}
		}
		return false
	}
}

// TypeFilter accepts only PDUs of the given types
func TypeFilter(types ...PDUType) Filter {
	return func(h *Header) bool {
		for _, t := range types {
			if h.PDUType == t {
				return true
			}
		}
		return false
	}
}
