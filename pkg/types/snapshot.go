package types

import "github.com/DoyleJ11/ti4-draft-backend/internal/engine"

type ServerMessage struct {
	Type      MessageType   `json:"type"`
	RequestID string        `json:"requestId,omitempty"`
	DraftID   string        `json:"draftId,omitempty"`
	Version   int           `json:"version"`
	Draft     *engine.Draft `json:"draft,omitempty"`
	Phase     *engine.Phase `json:"phase,omitempty"`
	Code      string        `json:"code,omitempty"`
	Error     string        `json:"error,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
}

// Snapshot is the authoritative state pushed to subscribers.
func Snapshot(version int, d engine.Draft) ServerMessage {
	phase := d.Phase()
	return ServerMessage{Type: MsgSyncDraft, DraftID: d.ID, Version: version, Draft: &d, Phase: &phase}
}

func ErrorMessage(requestID, code string, err error) ServerMessage {
	return ServerMessage{Type: MsgError, RequestID: requestID, Code: code, Error: err.Error()}
}
