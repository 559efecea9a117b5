package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action names the write that produced a TransactionMutatedMessage.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionRestored Action = "restored"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionRestored:
		return true
	}
	return false
}

// TransactionMutatedMessage announces a committed write. It carries only
// identifiers; consumers read the transaction itself from the database.
type TransactionMutatedMessage struct {
	MessageID     string    `json:"message_id"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id"`
	Action        Action    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionMutatedMessage(userID, transactionID int64, action Action) *TransactionMutatedMessage {
	return &TransactionMutatedMessage{
		MessageID:     uuid.NewString(),
		UserID:        userID,
		TransactionID: transactionID,
		Action:        action,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionMutatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMutatedMessageFromJSON decodes and checks a message body.
func TransactionMutatedMessageFromJSON(data []byte) (*TransactionMutatedMessage, error) {
	var msg TransactionMutatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID <= 0 || msg.UserID <= 0 {
		return nil, fmt.Errorf("message %q: missing transaction or user id", msg.MessageID)
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("message %q: unknown action %q", msg.MessageID, msg.Action)
	}
	return &msg, nil
}
