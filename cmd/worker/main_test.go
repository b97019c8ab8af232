package main

import (
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/samops/filerelay/internal/envelope"
	"github.com/samops/filerelay/internal/relocate"
	"github.com/samops/filerelay/internal/transform"
)

func TestErrString(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		result := errString(nil)
		if result != "" {
			t.Errorf("errString(nil) = %q, want empty string", result)
		}
	})

	t.Run("real error", func(t *testing.T) {
		testErr := strconv.ErrSyntax
		result := errString(testErr)
		if result != testErr.Error() {
			t.Errorf("errString(%v) = %q, want %q", testErr, result, testErr.Error())
		}
	})
}

func TestComputeDelay(t *testing.T) {
	schedule := []time.Duration{
		1 * time.Second,
		4 * time.Second,
		16 * time.Second,
		1 * time.Minute,
	}

	tests := []struct {
		name      string
		attempt   int
		jitterPct float64
		validate  func(t *testing.T, result, baseExpected time.Duration)
	}{
		{
			name:      "first attempt",
			attempt:   1,
			jitterPct: 0.0, // No jitter for predictable testing
			validate: func(t *testing.T, result, baseExpected time.Duration) {
				if result != baseExpected {
					t.Errorf("Expected delay %v, got %v", baseExpected, result)
				}
			},
		},
		{
			name:      "attempt within schedule",
			attempt:   3,
			jitterPct: 0.0,
			validate: func(t *testing.T, result, baseExpected time.Duration) {
				if result != baseExpected {
					t.Errorf("Expected delay %v, got %v", baseExpected, result)
				}
			},
		},
		{
			name:      "attempt beyond schedule",
			attempt:   10,
			jitterPct: 0.0,
			validate: func(t *testing.T, result, baseExpected time.Duration) {
				// Should clamp to the last item in schedule
				if result != baseExpected {
					t.Errorf("Expected delay %v (last in schedule), got %v", baseExpected, result)
				}
			},
		},
		{
			name:      "zero attempt",
			attempt:   0,
			jitterPct: 0.0,
			validate: func(t *testing.T, result, baseExpected time.Duration) {
				// Should clamp to the first item in schedule
				if result != baseExpected {
					t.Errorf("Expected delay %v (first in schedule), got %v", baseExpected, result)
				}
			},
		},
		{
			name:      "negative attempt",
			attempt:   -1,
			jitterPct: 0.0,
			validate: func(t *testing.T, result, baseExpected time.Duration) {
				if result != baseExpected {
					t.Errorf("Expected delay %v (first in schedule), got %v", baseExpected, result)
				}
			},
		},
		{
			name:      "with jitter",
			attempt:   2,
			jitterPct: 0.5,
			validate: func(t *testing.T, result, baseExpected time.Duration) {
				minExpected := time.Duration(float64(baseExpected) * 0.5)
				maxExpected := time.Duration(float64(baseExpected) * 1.5)
				if result < minExpected || result > maxExpected {
					t.Errorf("Expected delay between %v and %v, got %v", minExpected, maxExpected, result)
				}
			},
		},
		{
			name:      "jitter floor",
			attempt:   1,
			jitterPct: 2.0,
			validate: func(t *testing.T, result, baseExpected time.Duration) {
				// The jitter multiplier is floored at 0.1 so a delay never
				// collapses to zero or goes negative.
				minExpected := time.Duration(float64(baseExpected) * 0.1)
				if result < minExpected {
					t.Errorf("Expected delay of at least %v, got %v", minExpected, result)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := computeDelay(tt.attempt, schedule, tt.jitterPct)

			idx := tt.attempt - 1
			if idx < 0 {
				idx = 0
			}
			if idx >= len(schedule) {
				idx = len(schedule) - 1
			}
			baseExpected := schedule[idx]

			tt.validate(t, result, baseExpected)
		})
	}
}

func TestClassifyReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "other",
		},
		{
			name:     "extraction error",
			err:      &transform.ExtractionError{Reason: "no structure recognized"},
			expected: "extraction",
		},
		{
			name:     "wrapped extraction error",
			err:      fmt.Errorf("relocate object: %w", &transform.ExtractionError{Reason: "bad date"}),
			expected: "extraction",
		},
		{
			name:     "storage error",
			err:      &relocate.StorageError{Op: "copy", Bucket: "staging", Key: "a.csv", Err: errors.New("NoSuchKey")},
			expected: "storage",
		},
		{
			name:     "wrapped storage error",
			err:      fmt.Errorf("process: %w", &relocate.StorageError{Op: "copy", Err: errors.New("reset")}),
			expected: "storage",
		},
		{
			name:     "empty envelope",
			err:      envelope.ErrNoRecords,
			expected: "envelope",
		},
		{
			name:     "wrapped empty envelope",
			err:      fmt.Errorf("record missing bucket: %w", envelope.ErrNoRecords),
			expected: "envelope",
		},
		{
			name:     "anything else is a decode failure",
			err:      errors.New("decode message body: invalid character"),
			expected: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyReason(tt.err)
			if result != tt.expected {
				t.Errorf("classifyReason(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}
