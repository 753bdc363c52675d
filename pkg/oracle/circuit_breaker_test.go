// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package oracle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute, SuccessThreshold: 1})

	for i := 0; i < 3; i++ {
		assert.True(t, cb.AllowRequest())
		cb.RecordFailure()
	}
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.AllowRequest())
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond, SuccessThreshold: 1})

	cb.AllowRequest()
	cb.RecordFailure()
	require := assert.New(t)
	require.Equal(CircuitOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	require.True(cb.AllowRequest())
	require.Equal(CircuitHalfOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Millisecond, SuccessThreshold: 2})
	cb.AllowRequest()
	cb.RecordFailure()
	time.Sleep(2 * time.Millisecond)
	cb.AllowRequest()

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Millisecond, SuccessThreshold: 2})
	cb.AllowRequest()
	cb.RecordFailure()
	time.Sleep(2 * time.Millisecond)
	cb.AllowRequest()

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	cb.AllowRequest()
	cb.RecordFailure()
	require := assert.New(t)
	require.Equal(CircuitOpen, cb.State())

	cb.Reset()
	require.Equal(CircuitClosed, cb.State())
}
