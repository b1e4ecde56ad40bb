// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
)

// Statistics tracks what a session has sent
type Statistics struct {
	mu sync.Mutex

	StartTime    time.Time
	LastSendTime time.Time

	// Counters
	FramesSent     uint64
	BytesSent      uint64
	ProbesSent     uint64
	Unrecognized   uint64
	TransmitErrors uint64
	ByCommand      map[string]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime: now,
		ByCommand: make(map[string]uint64),
	}
}

// RecordFrame counts a successfully transmitted frame
func (s *Statistics) RecordFrame(label string, f mcuproto.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FramesSent++
	s.BytesSent += uint64(f.Len())
	if label == probeLabel {
		s.ProbesSent++
	} else {
		s.ByCommand[label]++
	}
	s.LastSendTime = time.Now()
}

// RecordUnrecognized counts an instruction that matched no command
func (s *Statistics) RecordUnrecognized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Unrecognized++
}

// RecordTransmitError counts a failed write
func (s *Statistics) RecordTransmitError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TransmitErrors++
}

// CalculateRates calculates the frame rate
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.FramesSent) / elapsed
	}
}

// Snapshot is a point-in-time copy of the counters, safe to read while
// the session keeps recording
type Snapshot struct {
	StartTime      time.Time
	LastSendTime   time.Time
	FramesSent     uint64
	BytesSent      uint64
	ProbesSent     uint64
	Unrecognized   uint64
	TransmitErrors uint64
	ByCommand      map[string]uint64
	FrameRate      float64
}

// Snapshot returns a copy of the counters with the rate brought up to date
func (s *Statistics) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	byCommand := make(map[string]uint64, len(s.ByCommand))
	for name, n := range s.ByCommand {
		byCommand[name] = n
	}
	return Snapshot{
		StartTime:      s.StartTime,
		LastSendTime:   s.LastSendTime,
		FramesSent:     s.FramesSent,
		BytesSent:      s.BytesSent,
		ProbesSent:     s.ProbesSent,
		Unrecognized:   s.Unrecognized,
		TransmitErrors: s.TransmitErrors,
		ByCommand:      byCommand,
		FrameRate:      s.FrameRate,
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Session (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:     %8d\n", s.FramesSent)
	result += fmt.Sprintf("Bytes Sent:      %8d\n", s.BytesSent)
	result += fmt.Sprintf("Probes Sent:     %8d\n", s.ProbesSent)

	names := make([]string, 0, len(s.ByCommand))
	for name := range s.ByCommand {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		result += fmt.Sprintf("  %-14s %6d\n", name+":", s.ByCommand[name])
	}

	if s.Unrecognized > 0 {
		result += fmt.Sprintf("Unrecognized:    %8d\n", s.Unrecognized)
	}
	if s.TransmitErrors > 0 {
		result += fmt.Sprintf("Transmit Errors: %8d\n", s.TransmitErrors)
	}

	result += fmt.Sprintf("Frame Rate:      %8.2f frames/sec\n", s.FrameRate)
	result += "============================\n"

	return result
}

// Reset resets all counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.StartTime = time.Now()
	s.LastSendTime = time.Time{}
	s.FramesSent = 0
	s.BytesSent = 0
	s.ProbesSent = 0
	s.Unrecognized = 0
	s.TransmitErrors = 0
	s.ByCommand = make(map[string]uint64)
	s.FrameRate = 0
}
