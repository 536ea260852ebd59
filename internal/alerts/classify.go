// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package alerts

import (
	"fmt"

	"github.com/tomtom215/cyberanalyzer/internal/detection"
)

// Alert types.
const (
	TypeUnusualPort        = "Unusual Port"
	TypeEphemeralPortSpike = "Ephemeral Port Spike"
	TypeSyntheticTest      = "Synthetic Test Alert"
)

// ephemeralPortFloor is the lower bound of the IANA dynamic port range.
const ephemeralPortFloor = 49152

// wellKnownPorts never raise an Unusual Port alert.
var wellKnownPorts = map[uint16]struct{}{
	80:  {},
	443: {},
	22:  {},
	53:  {},
}

// Classify decides from the destination port of the event's packet whether
// the event becomes an alert. A missing or zero port never does.
//
// The ephemeral branch can only match ports that are also well known, so it
// never fires for the current port list.
func Classify(ev detection.AnomalyEvent) (alertType, message string, ok bool) {
	p := ev.Packet.DstPort
	if p == nil || *p == 0 {
		return "", "", false
	}
	port := *p

	if _, known := wellKnownPorts[port]; !known {
		return TypeUnusualPort, fmt.Sprintf("Connection to uncommon port %d", port), true
	}
	if port > ephemeralPortFloor {
		return TypeEphemeralPortSpike, fmt.Sprintf("Potential port scan on %d", port), true
	}
	return "", "", false
}
