// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package vecsql

import (
	"errors"
	"fmt"
	"strconv"
)

// Status classifies an Error.
type Status uint8

const (
	// No error
	StatusOK Status = iota // OK
	// An error which does not fit any other category.
	StatusUnknown // Unknown
	// The engine rejected the statement text.
	StatusPrepare // Prepare
	// The engine failed while executing or fetching.
	StatusExecution // Execution
	// The number of bound values differs from the number of
	// parameters the statement declares.
	StatusParameterCountMismatch // Parameter Count Mismatch
	// The statement text contains more than one statement.
	StatusMultipleStatements // Multiple Statements
	// Opening or closing the database failed.
	StatusConnection // Connection
	// BEGIN, COMMIT or ROLLBACK failed.
	StatusTransaction // Transaction
	// The operation is not valid in the current state, for instance
	// executing a statement which was never prepared.
	StatusInvalidState // Invalid State
	// The operation is not supported.
	StatusNotImplemented // Not Implemented
	// The arguments are invalid.
	StatusInvalidArgument // Invalid Argument
)

var statusNames = [...]string{
	StatusOK:                     "OK",
	StatusUnknown:                "Unknown",
	StatusPrepare:                "Prepare",
	StatusExecution:              "Execution",
	StatusParameterCountMismatch: "Parameter Count Mismatch",
	StatusMultipleStatements:     "Multiple Statements",
	StatusConnection:             "Connection",
	StatusTransaction:            "Transaction",
	StatusInvalidState:           "Invalid State",
	StatusNotImplemented:         "Not Implemented",
	StatusInvalidArgument:        "Invalid Argument",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Error is the error type returned by every package of this module.
type Error struct {
	// Msg is a human readable description of the failed operation
	Msg string
	// Code classifies the error
	Code Status
	// Kind is the engine specific error kind, if the failure came from
	// the engine, for instance the engine error's type or status name.
	Kind string
	// Details is the engine's own message, if any.
	Details string

	err error
}

func (e Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Msg, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the engine error this Error was built from.
func (e Error) Unwrap() error { return e.err }

// Is matches any Error carrying the same Code, which lets the
// sentinel values below be used with errors.Is.
func (e Error) Is(target error) bool {
	switch t := target.(type) {
	case Error:
		return t.Code == e.Code
	case *Error:
		return t != nil && t.Code == e.Code
	}
	return false
}

var (
	ErrPrepare                = Error{Code: StatusPrepare}
	ErrExecution              = Error{Code: StatusExecution}
	ErrParameterCountMismatch = Error{Code: StatusParameterCountMismatch}
	ErrMultipleStatements     = Error{Code: StatusMultipleStatements}
	ErrConnection             = Error{Code: StatusConnection}
	ErrTransaction            = Error{Code: StatusTransaction}
	ErrInvalidState           = Error{Code: StatusInvalidState}
	ErrNotImplemented         = Error{Code: StatusNotImplemented}
	ErrInvalidArgument        = Error{Code: StatusInvalidArgument}
)

// Errorf builds an Error with a formatted message.
func Errorf(code Status, format string, args ...any) Error {
	return Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// KindError is implemented by engine errors which can name their own
// error kind.
type KindError interface {
	error
	ErrorKind() string
}

// WrapEngine wraps an engine failure. msg describes the operation that
// failed, the engine message ends up in Details. Errors which already
// are an Error keep their details and kind but take the new code and
// message. A nil err yields nil.
func WrapEngine(code Status, msg string, err error) error {
	if err == nil {
		return nil
	}

	var existing Error
	if errors.As(err, &existing) {
		details := existing.Details
		if details == "" {
			details = existing.Msg
		}
		return Error{Code: code, Msg: msg, Kind: existing.Kind, Details: details, err: err}
	}

	kind := fmt.Sprintf("%T", err)
	var ke KindError
	if errors.As(err, &ke) {
		kind = ke.ErrorKind()
	}
	return Error{Code: code, Msg: msg, Kind: kind, Details: err.Error(), err: err}
}
