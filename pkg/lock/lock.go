// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package lock provides the mutex types used throughout the tree. Wrapping
// the sync types in a dedicated package keeps the door open for deadlock
// instrumentation without touching callers.
package lock

import (
	"sync"
)

// Mutex is a mutual exclusion lock.
type Mutex struct {
	internal sync.Mutex
}

func (m *Mutex) Lock() {
	m.internal.Lock()
}

func (m *Mutex) Unlock() {
	m.internal.Unlock()
}

// RWMutex is a reader/writer mutual exclusion lock.
type RWMutex struct {
	internal sync.RWMutex
}

func (m *RWMutex) Lock() {
	m.internal.Lock()
}

func (m *RWMutex) Unlock() {
	m.internal.Unlock()
}

func (m *RWMutex) RLock() {
	m.internal.RLock()
}

func (m *RWMutex) RUnlock() {
	m.internal.RUnlock()
}
