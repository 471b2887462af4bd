// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"github.com/openlbaas/openlbaas/pkg/agentrpc"
	"github.com/openlbaas/openlbaas/pkg/lock"
)

// notifyQueue buffers plugin-to-agent notifications per host until the
// agent's next poll.
type notifyQueue struct {
	mutex  lock.Mutex
	byHost map[string][]*agentrpc.Notification
}

func newNotifyQueue() *notifyQueue {
	return &notifyQueue{byHost: map[string][]*agentrpc.Notification{}}
}

func (q *notifyQueue) push(host string, n *agentrpc.Notification) {
	q.mutex.Lock()
	q.byHost[host] = append(q.byHost[host], n)
	q.mutex.Unlock()
}

func (q *notifyQueue) drain(host string) []*agentrpc.Notification {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	ns := q.byHost[host]
	delete(q.byHost, host)
	return ns
}

// Notify queues a notification for the agent on host. Used by agent-based
// drivers and by the operator surface for agent_updated events.
func (p *Plugin) Notify(host string, n *agentrpc.Notification) {
	p.notifications.push(host, n)
}
