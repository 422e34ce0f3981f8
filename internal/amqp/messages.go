package amqp

import (
	"encoding/json"
	"time"

	"wealthpillar/internal/core"
)

// PeriodClosedMessage announces that a person's budgeting period was closed.
// It carries the final boundaries and the spent total so the report worker
// never has to re-run the aggregation.
type PeriodClosedMessage struct {
	PersonID   string    `json:"personId"`
	PersonName string    `json:"personName"`
	StartDate  core.Date `json:"startDate"`
	EndDate    core.Date `json:"endDate"`
	SpentCents int64     `json:"spentCents"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewPeriodClosedMessage(personID, personName string, start, end core.Date, spentCents int64) *PeriodClosedMessage {
	return &PeriodClosedMessage{
		PersonID:   personID,
		PersonName: personName,
		StartDate:  start,
		EndDate:    end,
		SpentCents: spentCents,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PeriodClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PeriodClosedMessageFromJSON creates a message from JSON bytes
func PeriodClosedMessageFromJSON(data []byte) (*PeriodClosedMessage, error) {
	var msg PeriodClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
