package skype

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Export is the top level of a Skype messages.json document
type Export struct {
	UserID        string         `json:"userId,omitempty"`
	ExportDate    string         `json:"exportDate,omitempty"`
	Conversations []Conversation `json:"conversations"`
}

// Conversation is one chat (one-to-one or group) in the export
type Conversation struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"displayName"`
	MessageList []Message `json:"MessageList"`
}

// Message is a message record exactly as it appears in the export
type Message struct {
	ID                  string      `json:"id"`
	From                string      `json:"from"`
	DisplayName         *string     `json:"displayName"`
	OriginalArrivalTime string      `json:"originalarrivaltime"`
	Properties          *Properties `json:"properties"`
	Content             string      `json:"content"`
	MessageType         string      `json:"messagetype"`

	// Raw holds the undecoded record for diagnostics
	Raw json.RawMessage `json:"-"`
	// DecodeErr is set when the record did not match the expected shape.
	// Fields decoded before the mismatch are kept.
	DecodeErr error `json:"-"`
}

// UnmarshalJSON decodes the message and keeps a copy of the raw bytes. A
// record of the wrong shape is not an error here; it is recorded in
// DecodeErr so the rest of the export still loads.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var p plain
	err := json.Unmarshal(data, &p)
	*m = Message(p)
	m.Raw = append(json.RawMessage(nil), data...)
	if err != nil {
		m.DecodeErr = fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}

// Dump returns the record as it was read, for error placeholders
func (m *Message) Dump() string {
	if len(m.Raw) > 0 {
		return string(m.Raw)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%+v", *m)
	}
	return string(b)
}

// Properties carries the edit/delete metadata Skype attaches to messages.
// Any field may be missing or null.
type Properties struct {
	EditTime              EpochMillis `json:"edittime"`
	DeleteTime            EpochMillis `json:"deletetime"`
	IsServerSideGenerated Truthy      `json:"isserversidegenerated"`
}

// EpochMillis is an epoch-milliseconds value that Skype writes either as a
// string or as a number. The empty value means "absent".
type EpochMillis string

// UnmarshalJSON accepts strings, numbers and null
func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*e = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*e = EpochMillis(str)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("epoch value %s: %w", s, err)
		}
		*e = EpochMillis(n.String())
	}
	return nil
}

// Truthy is a boolean-ish flag: booleans as-is, numbers when non-zero,
// strings via strconv.ParseBool and otherwise when non-empty.
type Truthy bool

// UnmarshalJSON accepts any JSON scalar
func (t *Truthy) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = false
	case bool:
		*t = Truthy(x)
	case float64:
		*t = x != 0
	case string:
		// "false" and "0" read as false rather than as non-empty strings
		if b, err := strconv.ParseBool(x); err == nil {
			*t = Truthy(b)
		} else {
			*t = x != ""
		}
	default:
		*t = true
	}
	return nil
}

// Enriched is a message together with the fields derived from it before
// sorting. It is not modified after Enrich returns.
type Enriched struct {
	*Message

	Time            time.Time
	EditTime        *time.Time
	DeleteTime      *time.Time
	ServerGenerated bool

	// Err is set when a derived field could not be computed; the formatter
	// renders such messages as error placeholders.
	Err error
}

// Enrich computes the time fields and the server-generated flag of a message
func Enrich(p *TimeParser, m *Message) *Enriched {
	e := &Enriched{Message: m}
	if m.DecodeErr != nil {
		e.Err = m.DecodeErr
		// still order it by arrival time when that much decoded
		if t, err := p.Parse(m.OriginalArrivalTime); err == nil {
			e.Time = t
		}
		return e
	}

	t, err := p.Parse(m.OriginalArrivalTime)
	if err != nil {
		e.Err = fmt.Errorf("originalarrivaltime: %w", err)
		return e
	}
	e.Time = t

	if m.Properties == nil {
		return e
	}

	if e.EditTime, err = ParseEpochMillis(string(m.Properties.EditTime)); err != nil {
		e.Err = fmt.Errorf("edittime: %w", err)
		return e
	}
	if e.DeleteTime, err = ParseEpochMillis(string(m.Properties.DeleteTime)); err != nil {
		e.Err = fmt.Errorf("deletetime: %w", err)
		return e
	}
	e.ServerGenerated = bool(m.Properties.IsServerSideGenerated)

	return e
}
