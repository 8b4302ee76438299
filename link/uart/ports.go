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

package uart

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port that may host a bridge device
type PortInfo struct {
	Path         string
	VIDPID       string // "VID:PID" in upper-case hex, empty for non-USB ports
	Product      string
	SerialNumber string
	IsUSB        bool
}

func (p PortInfo) String() string {
	if !p.IsUSB {
		return p.Path
	}
	if p.Product != "" {
		return fmt.Sprintf("%s [%s] %s", p.Path, p.VIDPID, p.Product)
	}
	return fmt.Sprintf("%s [%s]", p.Path, p.VIDPID)
}

// ListOptions filters the ports returned by ListPorts
type ListOptions struct {
	// Blocklist holds VID:PID pairs never reported. Nil means
	// DefaultBlocklist.
	Blocklist []string
	// IgnorePaths holds device paths never reported
	IgnorePaths []string
	// USBOnly drops ports that are not USB serial adapters
	USBOnly bool
}

// ListPorts enumerates the serial ports of the system
func ListPorts(opts *ListOptions) ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return filterPorts(details, opts), nil
}

func filterPorts(details []*enumerator.PortDetails, opts *ListOptions) []PortInfo {
	if opts == nil {
		opts = &ListOptions{}
	}
	blocklist := opts.Blocklist
	if blocklist == nil {
		blocklist = DefaultBlocklist()
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil || d.Name == "" {
			continue
		}
		info := PortInfo{
			Path:         d.Name,
			IsUSB:        d.IsUSB,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
		}
		if d.IsUSB {
			info.VIDPID = ParseVIDPID(d.VID + ":" + d.PID)
		}

		switch {
		case opts.USBOnly && !info.IsUSB:
			continue
		case info.VIDPID != "" && IsBlocked(info.VIDPID, blocklist):
			continue
		case IsPathIgnored(info.Path, opts.IgnorePaths):
			continue
		}
		ports = append(ports, info)
	}

	sort.Slice(ports, func(i, j int) bool {
		if ports[i].IsUSB != ports[j].IsUSB {
			return ports[i].IsUSB
		}
		return ports[i].Path < ports[j].Path
	})
	return ports
}

// DefaultBlocklist returns USB devices that are never bridge devices and
// should not be offered.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		"1D6B:0002", // Linux root hub
		"1D6B:0003", // Linux root hub (USB 3)
	}
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// ParseVIDPID normalizes a "vid:pid" pair to upper-case hex. It returns an
// empty string if either half is not hexadecimal.
func ParseVIDPID(descriptor string) string {
	vid, pid, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(descriptor)), ":")
	if !ok || !isHex(vid) || !isHex(pid) {
		return ""
	}
	return vid + ":" + pid
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// IsPathIgnored checks if a device path should be ignored.
// Paths are compared after cleaning and case folding.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}

	normalizedDevice := normalizedPath(devicePath)
	for _, ignorePath := range ignorePaths {
		if ignorePath == "" {
			continue
		}
		if devicePath == ignorePath || normalizedDevice == normalizedPath(ignorePath) {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
