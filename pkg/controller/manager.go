// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package controller

import (
	"context"
	"fmt"

	"github.com/openlbaas/openlbaas/pkg/lock"
)

type controllerMap map[string]*Controller

// Manager owns a set of named controllers.
type Manager struct {
	controllers controllerMap
	mutex       lock.RWMutex
}

// NewManager allocates a new manager.
func NewManager() *Manager {
	return &Manager{
		controllers: controllerMap{},
	}
}

// UpdateController installs or updates a controller in the manager. A
// controller is identified by its name. If a controller with the name already
// exists it is stopped and replaced; the new DoFunc runs immediately.
func (m *Manager) UpdateController(name string, params ControllerParams) *Controller {
	if params.DoFunc == nil {
		params.DoFunc = func(ctx context.Context) error {
			return undefinedDoFunc(name)
		}
	}

	m.mutex.Lock()
	if m.controllers == nil {
		m.controllers = controllerMap{}
	}

	if old, exists := m.controllers[name]; exists {
		m.removeController(old)
	}

	ctrl := &Controller{
		name:       name,
		params:     params,
		stop:       make(chan struct{}),
		update:     make(chan struct{}, 1),
		trigger:    make(chan struct{}, 1),
		terminated: make(chan struct{}),
	}
	if params.Context == nil {
		ctrl.ctxDoFunc, ctrl.cancelDoFunc = context.WithCancel(context.Background())
	} else {
		ctrl.ctxDoFunc, ctrl.cancelDoFunc = context.WithCancel(params.Context)
	}
	m.controllers[name] = ctrl
	m.mutex.Unlock()

	ctrl.getLogger().Debug("Starting new controller")
	go ctrl.runController()

	return ctrl
}

func (m *Manager) removeController(ctrl *Controller) {
	ctrl.stopController()
	delete(m.controllers, ctrl.name)
	ctrl.getLogger().Debug("Removed controller")
}

// Lookup returns the named controller, or nil.
func (m *Manager) Lookup(name string) *Controller {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.controllers[name]
}

func (m *Manager) removeAndReturnController(name string) (*Controller, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	ctrl, ok := m.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unable to find controller %s", name)
	}
	m.removeController(ctrl)
	return ctrl, nil
}

// RemoveController stops and removes a controller from the manager. If the
// DoFunc is currently running it is allowed to complete in the background.
func (m *Manager) RemoveController(name string) error {
	_, err := m.removeAndReturnController(name)
	return err
}

// RemoveControllerAndWait stops and removes a controller and waits for it to
// run to completion.
func (m *Manager) RemoveControllerAndWait(name string) error {
	ctrl, err := m.removeAndReturnController(name)
	if err == nil {
		<-ctrl.terminated
	}
	return err
}

// TriggerController triggers the named controller, if it exists.
func (m *Manager) TriggerController(name string) {
	if ctrl := m.Lookup(name); ctrl != nil {
		ctrl.Trigger()
	}
}

func (m *Manager) removeAll() []*Controller {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	ctrls := make([]*Controller, 0, len(m.controllers))
	for _, ctrl := range m.controllers {
		m.removeController(ctrl)
		ctrls = append(ctrls, ctrl)
	}
	return ctrls
}

// RemoveAllAndWait stops and removes all controllers and waits for each of
// them to exit.
func (m *Manager) RemoveAllAndWait() {
	for _, ctrl := range m.removeAll() {
		<-ctrl.terminated
	}
}
