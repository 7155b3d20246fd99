// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction so polling
// loops can be tested deterministically. Production code injects
// Real(); tests inject Fake() and advance time explicitly.
package clock

import "time"

// Clock abstracts the time operations bootstrap needs. Code that would
// call time.Now, time.After, or time.Sleep accepts a Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. If d <= 0 the channel receives
	// immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the calling goroutine for at least duration d.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
