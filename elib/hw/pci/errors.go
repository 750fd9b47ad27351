// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated: a required region is shorter than its layout.
	ErrTruncated = errors.New("truncated")
	// ErrMalformedChain: a capability chain revisits an offset, leaves the
	// declared buffer, or fails to terminate. Never fatal.
	ErrMalformedChain = errors.New("malformed capability chain")
	// ErrUnsupportedVariant: unrecognized header type or capability
	// version. The raw bytes are kept.
	ErrUnsupportedVariant = errors.New("unsupported variant")
)

type TruncatedError struct {
	What   string
	Offset uint
	Need   int
	Have   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%s at 0x%x: need %d bytes, have %d: %v",
		e.What, e.Offset, e.Need, e.Have, ErrTruncated)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// short returns a *TruncatedError when b is shorter than need.
func short(what string, offset uint16, b []byte, need int) error {
	if len(b) >= need {
		return nil
	}
	return &TruncatedError{
		What:   what,
		Offset: uint(offset),
		Need:   need,
		Have:   len(b),
	}
}

// CheckSize is short for decoders outside this package.
func CheckSize(what string, r *RawCapability, need int) error {
	return short(what, r.Offset, r.Data, need)
}

type ChainError struct {
	Extended bool
	Offset   uint16
	Reason   string
}

func (e *ChainError) Error() string {
	chain := "capability"
	if e.Extended {
		chain = "extended capability"
	}
	return fmt.Sprintf("%s chain at 0x%03x: %s: %v",
		chain, e.Offset, e.Reason, ErrMalformedChain)
}

func (e *ChainError) Unwrap() error { return ErrMalformedChain }

type UnsupportedError struct {
	What  string
	Value uint
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s 0x%x: %v", e.What, e.Value, ErrUnsupportedVariant)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedVariant }

// SourceError carries a byte source failure unchanged.
type SourceError struct {
	Addr BusAddress
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: source: %v", e.Addr, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
