// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Uncorrectable error status, mask and severity registers share a layout.
type UE uint32

const (
	UE_dlp                  UE = 1 << 4
	UE_sdes                 UE = 1 << 5
	UE_poisoned_tlp         UE = 1 << 12
	UE_flow_control         UE = 1 << 13
	UE_completion_timeout   UE = 1 << 14
	UE_completer_abort      UE = 1 << 15
	UE_unexpected_cmplt     UE = 1 << 16
	UE_rx_overflow          UE = 1 << 17
	UE_malformed_tlp        UE = 1 << 18
	UE_ecrc                 UE = 1 << 19
	UE_unsupported_req      UE = 1 << 20
	UE_acs_violation        UE = 1 << 21
	UE_internal             UE = 1 << 22
	UE_mc_blocked_tlp       UE = 1 << 23
	UE_atomic_op_blocked    UE = 1 << 24
	UE_tlp_prefix_blocked   UE = 1 << 25
	UE_poisoned_tlp_blocked UE = 1 << 26
)

var UELayout = pci.Layout{Name: "UESta", Width: 32, Fields: []pci.Field{
	flag("DLP", 4),
	flag("SDES", 5),
	flag("TLP", 12),
	flag("FCP", 13),
	flag("CmpltTO", 14),
	flag("CmpltAbrt", 15),
	flag("UnxCmplt", 16),
	flag("RxOF", 17),
	flag("MalfTLP", 18),
	flag("ECRC", 19),
	flag("UnsupReq", 20),
	flag("ACSViol", 21),
	flag("UncorrIntErr", 22),
	flag("BlockedTLP", 23),
	flag("AtomicOpBlocked", 24),
	flag("TLPBlockedErr", 25),
	flag("PoisonTLPBlocked", 26),
}}

func (x UE) String() string { return UELayout.PlusMinus(uint32(x)) }

// Correctable error status and mask registers.
type CE uint32

const (
	CE_rx_error         CE = 1 << 0
	CE_bad_tlp          CE = 1 << 6
	CE_bad_dllp         CE = 1 << 7
	CE_replay_rollover  CE = 1 << 8
	CE_replay_timeout   CE = 1 << 12
	CE_advisory         CE = 1 << 13
	CE_internal         CE = 1 << 14
	CE_header_log_oflow CE = 1 << 15
)

var CELayout = pci.Layout{Name: "CESta", Width: 32, Fields: []pci.Field{
	flag("RxErr", 0),
	flag("BadTLP", 6),
	flag("BadDLLP", 7),
	flag("Rollover", 8),
	flag("Timeout", 12),
	flag("AdvNonFatalErr", 13),
	flag("CorrIntErr", 14),
	flag("HeaderOF", 15),
}}

func (x CE) String() string { return CELayout.PlusMinus(uint32(x)) }

// AER capabilities and control:
//
//	[4:0] first error pointer
//	[5] ECRC generation capable
//	[6] ECRC generation enable
//	[7] ECRC check capable
//	[8] ECRC check enable
//	[9] multiple header recording capable
//	[10] multiple header recording enable
//	[11] TLP prefix log present
//	[12] completion timeout prefix/header log capable
type AERCtl uint32

var (
	aerFirstError = field("First", 0, 5, pci.Number)

	AERCtlLayout = pci.Layout{Name: "AERCap", Width: 32, Fields: []pci.Field{
		aerFirstError,
		flag("GenCap", 5),
		flag("CGenEn", 6),
		flag("ChkCap", 7),
		flag("ChkEn", 8),
		flag("MultHdrRecCap", 9),
		flag("MultHdrRecEn", 10),
		flag("TLPPfxPres", 11),
		flag("HdrLogCap", 12),
	}}
)

// FirstError is the bit position in UESta of the first error reported.
func (c AERCtl) FirstError() uint8 { return aerFirstError.Uint8(uint32(c)) }

func (c AERCtl) String() string {
	return fmt.Sprintf("First Error Pointer: %02x, %s", c.FirstError(), AERCtlLayout.PlusMinus(uint32(c)))
}

// Root error command: [0] correctable, [1] non-fatal, [2] fatal reporting
// enable.
type RootErrCmd uint32

var RootErrCmdLayout = pci.Layout{Name: "RootCmd", Width: 32, Fields: []pci.Field{
	flag("CERptEn", 0),
	flag("NFERptEn", 1),
	flag("FERptEn", 2),
}}

func (c RootErrCmd) String() string { return RootErrCmdLayout.PlusMinus(uint32(c)) }

// Root error status:
//
//	[0] ERR_COR received
//	[1] multiple ERR_COR received
//	[2] ERR_FATAL/NONFATAL received
//	[3] multiple ERR_FATAL/NONFATAL received
//	[4] first uncorrectable fatal
//	[5] non-fatal error messages received
//	[6] fatal error messages received
//	[31:27] advanced error interrupt message number
type RootErrSta uint32

var (
	rootErrMsg = field("IntMsg", 27, 5, pci.Number)

	RootErrStaLayout = pci.Layout{Name: "RootSta", Width: 32, Fields: []pci.Field{
		flag("CERcvd", 0),
		flag("MultCERcvd", 1),
		flag("UERcvd", 2),
		flag("MultUERcvd", 3),
		flag("FirstFatal", 4),
		flag("NonFatalMsg", 5),
		flag("FatalMsg", 6),
		rootErrMsg,
	}}
)

func (s RootErrSta) InterruptMessage() uint8 { return rootErrMsg.Uint8(uint32(s)) }

func (s RootErrSta) String() string {
	return fmt.Sprintf("%s IntMsg %d", RootErrStaLayout.PlusMinus(uint32(s)), s.InterruptMessage())
}

const (
	aerUESta     = 0x04
	aerUEMsk     = 0x08
	aerUESvrt    = 0x0c
	aerCESta     = 0x10
	aerCEMsk     = 0x14
	aerCtl       = 0x18
	aerHeaderLog = 0x1c
	aerRootCmd   = 0x2c
	aerRootSta   = 0x30
	aerSourceID  = 0x34

	aerMinSize  = 0x2c
	aerRootSize = 0x38
)

// AERRoot holds the registers only root ports and event collectors
// implement.
type AERRoot struct {
	Command RootErrCmd
	Status  RootErrSta
	// Requester IDs of the first correctable and uncorrectable errors.
	CorrectableSource   uint16
	UncorrectableSource uint16
}

// AER is the advanced error reporting extended capability.
type AER struct {
	Offset  uint16
	Version uint8

	UESta  UE
	UEMsk  UE
	UESvrt UE
	CESta  CE
	CEMsk  CE

	Control   AERCtl
	HeaderLog [4]uint32

	Root *AERRoot
}

func (*AER) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.AdvancedErrorReporting)}
}

func (a *AER) String() string { return fmt.Sprintf("Advanced Error Reporting (v%d)", a.Version) }

// Fatal reports whether the severity register marks errors x fatal.
func (a *AER) Fatal(x UE) bool { return a.UESvrt&x == x }

func (a *AER) Lines() (l elib.Lines) {
	l.Add(a.String())
	l.Add("UESta: " + a.UESta.String())
	l.Add("UEMsk: " + a.UEMsk.String())
	l.Add("UESvrt: " + a.UESvrt.String())
	l.Add("CESta: " + a.CESta.String())
	l.Add("CEMsk: " + a.CEMsk.String())
	l.Add("AERCap: " + a.Control.String())
	l.Add(fmt.Sprintf("HeaderLog: %08x %08x %08x %08x",
		a.HeaderLog[0], a.HeaderLog[1], a.HeaderLog[2], a.HeaderLog[3]))
	if r := a.Root; r != nil {
		l.Add("RootCmd: " + r.Command.String())
		l.Add("RootSta: " + r.Status.String())
		l.Add(fmt.Sprintf("ErrorSrc: ERR_COR: %04x ERR_FATAL/NONFATAL: %04x",
			r.CorrectableSource, r.UncorrectableSource))
	}
	return
}

// DecodeAER decodes advanced error reporting. Root ports carry three more
// registers, so the caller says whether the function is one.
func DecodeAER(r *pci.RawCapability, rootPort bool) (*AER, error) {
	need := aerMinSize
	if rootPort {
		need = aerRootSize
	}
	if err := pci.CheckSize("advanced error reporting", r, need); err != nil {
		return nil, err
	}
	a := &AER{
		Offset:  r.Offset,
		Version: r.Version,
		UESta:   UE(r.U32(aerUESta)),
		UEMsk:   UE(r.U32(aerUEMsk)),
		UESvrt:  UE(r.U32(aerUESvrt)),
		CESta:   CE(r.U32(aerCESta)),
		CEMsk:   CE(r.U32(aerCEMsk)),
		Control: AERCtl(r.U32(aerCtl)),
	}
	for i := range a.HeaderLog {
		a.HeaderLog[i] = r.U32(aerHeaderLog + 4*uint(i))
	}
	if rootPort {
		src := r.U32(aerSourceID)
		a.Root = &AERRoot{
			Command:             RootErrCmd(r.U32(aerRootCmd)),
			Status:              RootErrSta(r.U32(aerRootSta)),
			CorrectableSource:   uint16(src),
			UncorrectableSource: uint16(src >> 16),
		}
	}
	return a, nil
}
