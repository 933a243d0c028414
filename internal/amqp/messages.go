package amqp

import (
	"encoding/json"
	"time"
)

// ReseedMessage announces that the transaction collection was fully
// replaced from the seed source. Consumers (other dashboard instances)
// use it to drop their month-report caches.
type ReseedMessage struct {
	Records   int       `json:"records"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReseedMessage(records int, source string) *ReseedMessage {
	return &ReseedMessage{
		Records:   records,
		Source:    source,
		Timestamp: time.Now(),
	}
}

func (m *ReseedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReseedMessageFromJSON(data []byte) (*ReseedMessage, error) {
	var msg ReseedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
