package events

import (
	"encoding/json"
)

// LocalPublisher hands envelopes straight to the in-process connection
// registry. Single-node deployments and tests use this; clustered ones wrap
// it with the Redis bus.
type LocalPublisher struct {
	registry ConnectionRegistry
}

func NewLocalPublisher(registry ConnectionRegistry) *LocalPublisher {
	return &LocalPublisher{registry: registry}
}

func (p *LocalPublisher) PublishToUser(userID string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	p.registry.Send(userID, data)
	return nil
}
