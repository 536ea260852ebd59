// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package config

import (
	"fmt"

	"github.com/tomtom215/cyberanalyzer/internal/validation"
)

// Validate checks struct constraints and the cross-field rules tags cannot
// express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	validators := []func() error{
		c.validateStore,
		c.validateCapture,
		c.validateNATS,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Backend != "none" && !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for backend %q unless store.in_memory is set", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.Source == "pcap" && c.Capture.PcapPath == "" {
		return fmt.Errorf("capture.pcap_path is required when capture.source is pcap")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.NATSRequired() && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when NATS capture or notification is enabled")
	}
	return nil
}

// NATSRequired reports whether any component needs a NATS connection.
func (c *Config) NATSRequired() bool {
	return c.Capture.Source == "nats" || c.Notify.NATS
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
