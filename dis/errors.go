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
	"fmt"
)

// Sentinel errors
var (
	ErrTruncatedInput = errors.New("dis: truncated input")
	ErrInvalidLength  = errors.New("dis: invalid length field")
	ErrPDUTooLarge    = errors.New("dis: PDU too large")
	ErrUnknownEdition = errors.New("dis: unsupported protocol edition")
	ErrNilPDU         = errors.New("dis: nil PDU")
)

// DecodeError describes a failure while decoding a single PDU
type DecodeError struct {
	Type   PDUType
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("dis: decode %s at offset %d: %v", e.Type, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches another DecodeError with the same PDU type
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// truncated builds the error returned when a field does not fit
func truncated(offset, need, have int) error {
	return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedInput, need, offset, have)
}

// IsTruncated reports whether err was caused by short input
func IsTruncated(err error) bool {
	return errors.Is(err, ErrTruncatedInput)
}
