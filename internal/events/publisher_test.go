package events

import (
	"encoding/json"
	"testing"
)

type recordingRegistry struct {
	userIDs  []string
	payloads [][]byte
	accept   bool
}

func (r *recordingRegistry) Send(userID string, payload []byte) bool {
	r.userIDs = append(r.userIDs, userID)
	r.payloads = append(r.payloads, payload)
	return r.accept
}

func TestLocalPublisherMarshalsEnvelope(t *testing.T) {
	registry := &recordingRegistry{accept: true}
	pub := NewLocalPublisher(registry)

	total := int64(3)
	err := pub.PublishToUser("user-1", Envelope{
		Type:        TypeUnreadCount,
		UnreadCount: &total,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(registry.payloads) != 1 || registry.userIDs[0] != "user-1" {
		t.Fatalf("registry calls = %v", registry.userIDs)
	}

	var decoded map[string]any
	if err := json.Unmarshal(registry.payloads[0], &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != TypeUnreadCount {
		t.Fatalf("type = %v", decoded["type"])
	}
	if decoded["unread_count"] != float64(3) {
		t.Fatalf("unread_count = %v", decoded["unread_count"])
	}
	// Unset payload fields stay off the wire.
	if _, present := decoded["message"]; present {
		t.Fatalf("empty message field serialized: %s", registry.payloads[0])
	}
	if _, present := decoded["chat_id"]; present {
		t.Fatalf("empty chat_id field serialized: %s", registry.payloads[0])
	}
}

func TestLocalPublisherIgnoresMissingConnection(t *testing.T) {
	registry := &recordingRegistry{accept: false}
	pub := NewLocalPublisher(registry)

	if err := pub.PublishToUser("user-1", Envelope{Type: TypeNewMessage, ChatID: "c1"}); err != nil {
		t.Fatalf("publish to offline user must not error: %v", err)
	}
}
