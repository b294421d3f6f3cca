package skype

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMessageDecoding(t *testing.T) {
	data := `{
		"id": "1",
		"displayName": null,
		"originalarrivaltime": "2022-01-01T00:00:00.000Z",
		"messagetype": "RichText",
		"version": 1,
		"content": "hi",
		"from": "8:alice",
		"properties": {"edittime": 1641000000000, "deletetime": "", "isserversidegenerated": "true"}
	}`

	var m Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}

	if m.DisplayName != nil {
		t.Errorf("expected nil display name, got %q", *m.DisplayName)
	}
	if m.Properties == nil {
		t.Fatal("expected properties")
	}
	if m.Properties.EditTime != "1641000000000" {
		t.Errorf("EditTime = %q", m.Properties.EditTime)
	}
	if !bool(m.Properties.IsServerSideGenerated) {
		t.Error("expected server generated flag")
	}
	if !strings.Contains(m.Dump(), `"version": 1`) {
		t.Errorf("Dump should keep the raw record, got %s", m.Dump())
	}
}

func TestTruthy(t *testing.T) {
	tests := map[string]bool{
		`true`:    true,
		`false`:   false,
		`null`:    false,
		`1`:       true,
		`0`:       false,
		`"True"`:  true,
		`"false"`: false,
		`"yes"`:   true,
		`""`:      false,
		`"0"`:     false,
	}
	for input, want := range tests {
		var v Truthy
		if err := json.Unmarshal([]byte(input), &v); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", input, err)
			continue
		}
		if bool(v) != want {
			t.Errorf("Truthy(%s) = %v, want %v", input, v, want)
		}
	}
}

func TestMessageDecodingKeepsMismatchedRecords(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"content object", `{"id": "1", "from": "8:alice", "originalarrivaltime": "2022-01-01T00:00:00Z", "content": {"odd": 1}}`},
		{"from number", `{"id": "1", "from": 7, "originalarrivaltime": "2022-01-01T00:00:00Z", "content": "hi"}`},
		{"edittime bool", `{"id": "1", "from": "8:alice", "originalarrivaltime": "2022-01-01T00:00:00Z", "properties": {"edittime": true}}`},
		{"not an object", `"just a string"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Message
			if err := json.Unmarshal([]byte(tt.data), &m); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if m.DecodeErr == nil {
				t.Fatal("expected DecodeErr")
			}
			if m.Dump() != tt.data {
				t.Errorf("Dump() = %s, want the raw record", m.Dump())
			}
			if e := Enrich(NewTimeParser(), &m); e.Err == nil {
				t.Error("Enrich should carry the decode error")
			}
		})
	}
}

func TestEnrich(t *testing.T) {
	p := NewTimeParser()

	m := &Message{
		OriginalArrivalTime: "2022-01-01T00:00:00Z",
		Properties: &Properties{
			EditTime:              "1641000060000",
			IsServerSideGenerated: true,
		},
	}
	e := Enrich(p, m)
	if e.Err != nil {
		t.Fatalf("unexpected error: %v", e.Err)
	}
	if e.EditTime == nil || e.DeleteTime != nil {
		t.Errorf("EditTime = %v, DeleteTime = %v", e.EditTime, e.DeleteTime)
	}
	if !e.ServerGenerated {
		t.Error("expected ServerGenerated")
	}

	bad := Enrich(p, &Message{OriginalArrivalTime: "yesterday"})
	if bad.Err == nil {
		t.Error("expected error for bad arrival time")
	}

	noProps := Enrich(p, &Message{OriginalArrivalTime: "2022-01-01T00:00:00Z"})
	if noProps.Err != nil || noProps.EditTime != nil || noProps.ServerGenerated {
		t.Errorf("unexpected enrichment without properties: %+v", noProps)
	}
}
