/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timerules implements the vibe time rules subsystem: hour
// interval arithmetic on the 24-hour circle, rule validation, the
// sanitizing loader, and the recommendation engine.
package timerules

// ContainsHour reports whether hour falls in the half-open interval
// [start, end) walking forward from start, wrapping past 23 back to 0
// when end <= start.
//
// An end of 0 with a non-zero start means "ends at midnight" and is
// folded into "runs through hour 23". Windows like 19-0 therefore
// cover 19..23 instead of wrapping the whole day. Intentional product
// behavior.
func ContainsHour(start, end, hour int) bool {
	if end == 0 && start > 0 {
		return hour >= start && hour <= 23
	}
	if end <= start {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

// IntervalsOverlap reports whether two half-open circular hour
// intervals share at least one hour. Wrapping intervals (start > end)
// are split at midnight and checked piecewise. Adjacent intervals such
// as [6,12) and [12,17) do not overlap; the comparison is strict.
func IntervalsOverlap(start1, end1, start2, end2 int) bool {
	if start1 > end1 {
		return IntervalsOverlap(0, end1, start2, end2) ||
			IntervalsOverlap(start1, 24, start2, end2)
	}
	if start2 > end2 {
		return IntervalsOverlap(start1, end1, 0, end2) ||
			IntervalsOverlap(start1, end1, start2, 24)
	}
	return start1 < end2 && start2 < end1
}
