// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/tomtom215/cyberanalyzer/internal/detection"
	"github.com/tomtom215/cyberanalyzer/internal/logging"
)

// maxReadErrors bounds unreadable records before a file is given up on.
const maxReadErrors = 1000

// pcapngMagic is the block type of a pcapng section header.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// PcapFileSource replays a pcap or pcapng file.
type PcapFileSource struct {
	path      string
	batchSize int
}

// NewPcapFileSource creates a source for the file at path.
func NewPcapFileSource(path string, batchSize int) *PcapFileSource {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PcapFileSource{path: path, batchSize: batchSize}
}

// Run reads the whole file, handing batches to sink. Undecodable packets
// are skipped. It returns nil at end of file.
func (s *PcapFileSource) Run(ctx context.Context, sink Sink) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()

	r, err := openReader(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("read capture header %s: %w", s.path, err)
	}

	src := gopacket.NewPacketSource(r, r.LinkType())
	src.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	var (
		batch      = make([]detection.PacketRecord, 0, s.batchSize)
		total      int
		skipped    int
		readErrors int
	)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		sink(batch)
		batch = make([]detection.PacketRecord, 0, s.batchSize)
	}

	for {
		if err := ctx.Err(); err != nil {
			flush()
			return err
		}

		packet, err := src.NextPacket()
		if err != nil {
			if endOfCapture(err) {
				if !errors.Is(err, io.EOF) {
					logging.Warn().Err(err).Str("file", s.path).Msg("Capture file truncated")
				}
				break
			}
			readErrors++
			if readErrors > maxReadErrors {
				flush()
				return fmt.Errorf("too many unreadable packets in %s: %w", s.path, err)
			}
			logging.Debug().Err(err).Str("file", s.path).Msg("Skipping unreadable packet")
			continue
		}

		rec, ok := FromPacket(packet)
		if !ok {
			skipped++
			continue
		}
		total++
		batch = append(batch, rec)
		if len(batch) >= s.batchSize {
			flush()
		}
	}
	flush()

	logging.Info().
		Str("file", s.path).
		Int("packets", total).
		Int("skipped", skipped).
		Int("read_errors", readErrors).
		Msg("Capture file replayed")
	return nil
}

func openReader(br *bufio.Reader) (packetReader, error) {
	magic, err := br.Peek(len(pcapngMagic))
	if err != nil {
		return nil, err
	}
	if string(magic) == string(pcapngMagic) {
		r, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// endOfCapture reports read errors after which no further packet follows.
func endOfCapture(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrNoProgress)
}
