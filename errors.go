// go-nfctag
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfctag.
//
// go-nfctag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfctag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfctag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package nfctag

import (
	"errors"
	"fmt"
)

// ReturnCode is a kernel return code. Zero is success, negative values are
// failures. ReturnCode implements error so failure codes can be matched with
// errors.Is.
type ReturnCode int32

// Kernel return codes
const (
	Success        ReturnCode = 0
	ErrFail        ReturnCode = -1
	ErrBusy        ReturnCode = -2
	ErrAlready     ReturnCode = -3
	ErrOff         ReturnCode = -4
	ErrReserve     ReturnCode = -5
	ErrInvalid     ReturnCode = -6
	ErrSize        ReturnCode = -7
	ErrCancel      ReturnCode = -8
	ErrNoMem       ReturnCode = -9
	ErrNoSupport   ReturnCode = -10
	ErrNoDevice    ReturnCode = -11
	ErrUninstalled ReturnCode = -12
	ErrNoAck       ReturnCode = -13
)

var returnCodeNames = map[ReturnCode]string{
	Success:        "SUCCESS",
	ErrFail:        "FAIL",
	ErrBusy:        "EBUSY",
	ErrAlready:     "EALREADY",
	ErrOff:         "EOFF",
	ErrReserve:     "ERESERVE",
	ErrInvalid:     "EINVAL",
	ErrSize:        "ESIZE",
	ErrCancel:      "ECANCEL",
	ErrNoMem:       "ENOMEM",
	ErrNoSupport:   "ENOSUPPORT",
	ErrNoDevice:    "ENODEVICE",
	ErrUninstalled: "EUNINSTALLED",
	ErrNoAck:       "ENOACK",
}

func (rc ReturnCode) String() string {
	if name, ok := returnCodeNames[rc]; ok {
		return name
	}
	return fmt.Sprintf("ReturnCode(%d)", int32(rc))
}

// Error implements error
func (rc ReturnCode) Error() string {
	return "kernel returned " + rc.String()
}

// IsSuccess reports whether rc is Success
func (rc ReturnCode) IsSuccess() bool {
	return rc == Success
}

// Err returns nil for Success and rc otherwise
func (rc ReturnCode) Err() error {
	if rc == Success {
		return nil
	}
	return rc
}

// ReturnCodeFromUpcall decodes a return code delivered as an upcall argument.
func ReturnCodeFromUpcall(arg uint32) ReturnCode {
	return ReturnCode(int32(arg))
}

// UpcallArg encodes rc the way the kernel passes it as an upcall argument
func (rc ReturnCode) UpcallArg() uint32 {
	return uint32(rc)
}

// Binding errors
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilKernel        = errors.New("kernel is nil")
)

// SyscallError describes the syscall step an operation failed at
type SyscallError struct {
	Err     error
	Op      string
	Syscall string
	Driver  DriverNum
	Number  uint32
}

func (e *SyscallError) Error() string {
	return fmt.Sprintf("%s: %s %d on driver %s: %v", e.Op, e.Syscall, e.Number, e.Driver, e.Err)
}

func (e *SyscallError) Unwrap() error {
	return e.Err
}

// ReturnCodeOf extracts the kernel return code from err. It returns ErrFail
// for errors that carry no return code and Success for nil.
func ReturnCodeOf(err error) ReturnCode {
	if err == nil {
		return Success
	}
	var rc ReturnCode
	if errors.As(err, &rc) {
		return rc
	}
	return ErrFail
}
