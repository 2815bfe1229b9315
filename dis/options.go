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

import "log/slog"

// codecOptions holds configuration for a Codec
type codecOptions struct {
	edition  ProtocolVersion
	decoders map[PDUType]DecodeFunc
}

// defaultCodecOptions returns the default codec options
func defaultCodecOptions() *codecOptions {
	return &codecOptions{
		edition:  ProtocolVersion7,
		decoders: make(map[PDUType]DecodeFunc),
	}
}

// CodecOption is a functional option for configuring a Codec
type CodecOption func(*codecOptions)

// WithEdition selects the header layout used for every encoded and decoded PDU
func WithEdition(v ProtocolVersion) CodecOption {
	return func(o *codecOptions) {
		o.edition = v
	}
}

// WithDecoder registers an additional decoder at construction
func WithDecoder(t PDUType, fn DecodeFunc) CodecOption {
	return func(o *codecOptions) {
		o.decoders[t] = fn
	}
}

// dispatcherOptions holds configuration for a Dispatcher
type dispatcherOptions struct {
	filters []Filter
	metrics *Metrics
	logger  *slog.Logger
}

// defaultDispatcherOptions returns the default dispatcher options
func defaultDispatcherOptions() *dispatcherOptions {
	return &dispatcherOptions{
		logger: slog.Default(),
	}
}

// DispatcherOption is a functional option for configuring a Dispatcher
type DispatcherOption func(*dispatcherOptions)

// WithFilter appends a filter to the chain
func WithFilter(f Filter) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.filters = append(o.filters, f)
	}
}

// WithMetrics shares a metrics instance with the dispatcher
func WithMetrics(m *Metrics) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.metrics = m
	}
}

// WithLogger sets the logger for the dispatcher
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.logger = logger
	}
}
