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

package type4

import "fmt"

// ISO/IEC 14443-4 block framing
const (
	ratsStart = 0xE0
	ppsStart  = 0xD0
	ppsMask   = 0xF0

	pcbBlockNum = 0x01
	pcbNAD      = 0x04
	pcbCID      = 0x08
	pcbChaining = 0x10
	pcbNak      = 0x10

	iBlockMask  = 0xE2
	iBlockValue = 0x02
	rBlockMask  = 0xE6
	rBlockValue = 0xA2
	sBlockMask  = 0xC7
	sBlockValue = 0xC2

	sBlockTypeMask = 0x30
	sBlockDeselect = 0x00
)

func isIBlock(pcb byte) bool { return pcb&iBlockMask == iBlockValue }
func isRBlock(pcb byte) bool { return pcb&rBlockMask == rBlockValue }
func isSBlock(pcb byte) bool { return pcb&sBlockMask == sBlockValue }

func cidLength(pcb byte) int {
	if pcb&pcbCID != 0 {
		return 1
	}
	return 0
}

// splitBlock separates an I-block into its header (PCB plus optional CID
// and NAD bytes) and its information field
func splitBlock(frame []byte) (header, payload []byte, err error) {
	pcb := frame[0]
	n := 1 + cidLength(pcb)
	if pcb&pcbNAD != 0 {
		n++
	}
	if len(frame) < n {
		return nil, nil, fmt.Errorf("block of %d bytes is shorter than its %d byte header", len(frame), n)
	}
	return frame[:n], frame[n:], nil
}

// iBlockReply is the PCB of the I-block answering an I-block with pcb. The
// block number, CID and NAD flags are echoed.
func iBlockReply(pcb byte) byte {
	return iBlockValue | pcb&(pcbBlockNum|pcbCID|pcbNAD)
}

// rBlockAck acknowledges a chained I-block with pcb
func rBlockAck(pcb byte) byte {
	return rBlockValue | pcb&(pcbBlockNum|pcbCID)
}
