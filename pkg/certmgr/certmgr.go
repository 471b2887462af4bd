// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package certmgr is the narrow interface to the certificate backend used
// by TERMINATED_HTTPS listeners.
package certmgr

import (
	"errors"
	"fmt"

	"github.com/openlbaas/openlbaas/pkg/lock"
)

// Certificate is a retrieved TLS container.
type Certificate struct {
	Ref           string
	Certificate   string
	PrivateKey    string
	Intermediates string
}

// Valid reports whether the container carries the minimum usable content.
func (c *Certificate) Valid() bool {
	return c.Certificate != "" && c.PrivateKey != ""
}

// NotFoundError is returned when a container reference does not resolve.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("TLS container %s could not be found", e.Ref)
}

// InvalidError is returned when a container resolves but fails validation.
type InvalidError struct {
	Ref    string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("TLS container %s is invalid: %s", e.Ref, e.Reason)
}

// BackendError wraps unexpected certificate-backend failures.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("certificate backend failure: %v", e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalid reports whether err is an InvalidError.
func IsInvalid(err error) bool {
	var iv *InvalidError
	return errors.As(err, &iv)
}

// Interface is the certificate manager collaborator.
type Interface interface {
	// GetCert retrieves and validates a TLS container by reference.
	GetCert(ref string) (*Certificate, error)
}

// Memory is an in-memory certificate store.
type Memory struct {
	mutex lock.RWMutex
	certs map[string]*Certificate
}

// NewMemory returns an empty certificate store.
func NewMemory() *Memory {
	return &Memory{certs: map[string]*Certificate{}}
}

// AddCert stores a certificate under its reference.
func (m *Memory) AddCert(c *Certificate) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	cpy := *c
	m.certs[c.Ref] = &cpy
}

// GetCert implements Interface.
func (m *Memory) GetCert(ref string) (*Certificate, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	c, ok := m.certs[ref]
	if !ok {
		return nil, &NotFoundError{Ref: ref}
	}
	if !c.Valid() {
		return nil, &InvalidError{Ref: ref, Reason: "missing certificate or private key"}
	}
	cpy := *c
	return &cpy, nil
}
