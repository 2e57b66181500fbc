package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_HonorsRetryAfterWhenEnabled(t *testing.T) {
	d := BackoffDelay(0, 5*time.Second, true)
	assert.Equal(t, 5*time.Second, d)
}

func TestBackoffDelay_IgnoresRetryAfterWhenDisabled(t *testing.T) {
	d := BackoffDelay(0, 5*time.Second, false)
	assert.NotEqual(t, 5*time.Second, d)
	assert.True(t, d >= 200*time.Millisecond)
}

func TestBackoffDelay_GrowsWithAttempt(t *testing.T) {
	d0 := BackoffDelay(0, 0, false)
	d3 := BackoffDelay(3, 0, false)
	assert.True(t, d3 > d0)
}

func TestBackoffDelay_CapsAtMax(t *testing.T) {
	d := BackoffDelay(20, 0, false)
	assert.True(t, d <= 30*time.Second+6*time.Second) // cap plus max jitter
}

func TestParseRetryAfter_SecondsFormat(t *testing.T) {
	d := ParseRetryAfter("120")
	assert.Equal(t, 120*time.Second, d)
}

func TestParseRetryAfter_EmptyReturnsZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
}

func TestParseRetryAfter_UnparseableReturnsZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), ParseRetryAfter("not-a-date-or-seconds"))
}
