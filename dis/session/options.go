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

package session

import (
	"log/slog"
	"time"
)

// DefaultTickInterval is how often the lifecycle engine is ticked
const DefaultTickInterval = 100 * time.Millisecond

// sessionOptions holds configuration for a Session
type sessionOptions struct {
	tickInterval time.Duration
	sendTimeout  time.Duration
	logger       *slog.Logger
}

// defaultOptions returns the default session options
func defaultOptions() *sessionOptions {
	return &sessionOptions{
		tickInterval: DefaultTickInterval,
		sendTimeout:  3 * time.Second,
		logger:       slog.Default(),
	}
}

// Option is a functional option for configuring a Session
type Option func(*sessionOptions)

// WithTickInterval sets how often the entity manager is ticked
func WithTickInterval(d time.Duration) Option {
	return func(o *sessionOptions) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithSendTimeout sets the write timeout applied when the context has none
func WithSendTimeout(d time.Duration) Option {
	return func(o *sessionOptions) {
		o.sendTimeout = d
	}
}

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}
