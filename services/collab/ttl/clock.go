// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ttl reaps ended collaboration sessions: it sweeps the hub for
// sessions in the terminal ended state, archives them to durable storage,
// and evicts them from memory.
package ttl

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// Clock Sanity Checking
// =============================================================================

// ClockChecker provides sanity checking for system time.
//
// # Description
//
// Validates that the system clock is within acceptable bounds before the
// reaper stamps archive records. Archived sessions carry timestamps used
// for retention decisions; a manipulated or badly drifted clock would
// poison those records, so a failed check skips the sweep instead.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type ClockChecker interface {
	// CheckClockSanity verifies the system clock is reasonable.
	//
	// Validates that:
	//   1. Current time is after MinValidTime
	//   2. Current time is before MaxValidTime
	//   3. Time hasn't jumped more than the allowed threshold since the
	//      last check
	//
	// # Outputs
	//
	//   - error: Non-nil if the clock appears invalid.
	CheckClockSanity() error

	// ResetJumpDetection resets the jump detection baseline.
	//
	// Call this after a known legitimate time change (e.g., NTP sync,
	// system resume from sleep) to prevent false positive jump detection.
	ResetJumpDetection()
}

// ClockConfig contains configuration for the clock checker.
//
// # Fields
//
//   - MinValidTime: Earliest acceptable time (default: 2025-01-01)
//   - MaxValidTime: Latest acceptable time (default: 2035-12-31)
//   - MaxBackwardJump: Maximum allowed backward time jump (default: 1 hour)
//   - MaxForwardJump: Maximum allowed forward time jump (default: 2 hours)
type ClockConfig struct {
	MinValidTime    time.Time
	MaxValidTime    time.Time
	MaxBackwardJump time.Duration
	MaxForwardJump  time.Duration
}

// DefaultClockConfig returns sensible default configuration.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		MinValidTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime:    time.Date(2035, 12, 31, 23, 59, 59, 0, time.UTC),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}
}

// clockChecker implements ClockChecker with bound and jump validation.
type clockChecker struct {
	config            ClockConfig
	lastKnownGoodTime time.Time
	mu                sync.RWMutex
	checkCount        int64
}

// NewClockChecker creates a clock checker with default configuration.
func NewClockChecker() ClockChecker {
	return NewClockCheckerWithConfig(DefaultClockConfig())
}

// NewClockCheckerWithConfig creates a clock checker with custom
// configuration. Use this when default bounds don't fit the deployment.
func NewClockCheckerWithConfig(config ClockConfig) ClockChecker {
	return &clockChecker{
		config:            config,
		lastKnownGoodTime: time.Now(),
	}
}

// CheckClockSanity verifies the system clock is reasonable.
//
// On first call or after ResetJumpDetection(), jump detection is skipped.
func (c *clockChecker) CheckClockSanity() error {
	now := time.Now()

	if now.Before(c.config.MinValidTime) {
		return fmt.Errorf("clock sanity: time %v is before minimum valid time %v (possible clock set to past)",
			now.Format(time.RFC3339), c.config.MinValidTime.Format(time.RFC3339))
	}
	if now.After(c.config.MaxValidTime) {
		return fmt.Errorf("clock sanity: time %v is after maximum valid time %v (possible clock set to future)",
			now.Format(time.RFC3339), c.config.MaxValidTime.Format(time.RFC3339))
	}

	c.mu.RLock()
	lastGood := c.lastKnownGoodTime
	checkCount := c.checkCount
	c.mu.RUnlock()

	if checkCount > 0 {
		timeDiff := now.Sub(lastGood)
		if timeDiff < -c.config.MaxBackwardJump {
			return fmt.Errorf("clock sanity: suspicious backward jump of %v detected (max allowed: %v)",
				-timeDiff, c.config.MaxBackwardJump)
		}
		if timeDiff > c.config.MaxForwardJump {
			return fmt.Errorf("clock sanity: suspicious forward jump of %v detected (max allowed: %v)",
				timeDiff, c.config.MaxForwardJump)
		}
	}

	c.mu.Lock()
	c.lastKnownGoodTime = now
	c.checkCount++
	c.mu.Unlock()

	return nil
}

// ResetJumpDetection resets the jump detection baseline to now.
func (c *clockChecker) ResetJumpDetection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastKnownGoodTime = time.Now()
	c.checkCount = 0
}

// =============================================================================
// No-op Clock Checker (for testing)
// =============================================================================

// noopClockChecker always passes sanity checks. Used in tests or when
// clock checking should be disabled.
type noopClockChecker struct{}

// NewNoopClockChecker creates a clock checker that always passes.
func NewNoopClockChecker() ClockChecker {
	return &noopClockChecker{}
}

// CheckClockSanity always returns nil.
func (n *noopClockChecker) CheckClockSanity() error {
	return nil
}

// ResetJumpDetection is a no-op.
func (n *noopClockChecker) ResetJumpDetection() {}
