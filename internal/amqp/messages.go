package amqp

import (
	"encoding/json"
	"time"

	"zakatledger/internal/core"
	"zakatledger/internal/snapshot"
)

// SnapshotJobMessage carries one snapshot job to the worker. The actor travels
// with the job because the worker has no request to take it from.
type SnapshotJobMessage struct {
	Op        snapshot.Op    `json:"op"`
	Input     snapshot.Input `json:"input"`
	Source    core.SourceRef `json:"source"`
	Actor     string         `json:"actor"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewSnapshotJobMessage(job snapshot.Job, actor, requestID string) *SnapshotJobMessage {
	return &SnapshotJobMessage{
		Op:        job.Op,
		Input:     job.Input,
		Source:    job.Source,
		Actor:     actor,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

// Job converts the message back into a snapshot job.
func (m *SnapshotJobMessage) Job() snapshot.Job {
	return snapshot.Job{Op: m.Op, Input: m.Input, Source: m.Source}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotJobMessageFromJSON creates a message from JSON bytes
func SnapshotJobMessageFromJSON(data []byte) (*SnapshotJobMessage, error) {
	var msg SnapshotJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
