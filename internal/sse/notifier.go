package sse

import (
	"context"

	"github.com/GTDGit/storefront_api/internal/events"
)

// HubPublisher subscribes a Hub to the event bus.
type HubPublisher struct {
	hub *Hub
}

// NewHubPublisher creates a publisher backed by the given Hub.
func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, e events.Event) {
	if p.hub.ClientCount() == 0 {
		return
	}
	p.hub.Broadcast(e)
}
