package proto

import (
	"encoding/json"
	"testing"
)

func TestDecodeClientValidFrame(t *testing.T) {
	raw := []byte(`{"ver":1,"type":"input","seq":12,"at":1.5,"input":{"dx":1,"move":"east"}}`)
	msg, err := DecodeClient(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Type != ClientInput || msg.Seq != 12 || msg.At != 1.5 {
		t.Fatalf("wrong envelope: %+v", msg)
	}
	if msg.Input.Float("dx") != 1 || msg.Input.String("move") != "east" {
		t.Fatalf("wrong input payload: %v", msg.Input)
	}
}

func TestDecodeClientRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"type":`},
		{"wrong version", `{"ver":99,"type":"input"}`},
		{"missing type", `{"ver":1}`},
	}
	for _, tc := range cases {
		if _, err := DecodeClient([]byte(tc.raw)); err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

func TestDecodeClientToleratesOmittedVersion(t *testing.T) {
	msg, err := DecodeClient([]byte(`{"type":"join","game":"arena"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Game != "arena" {
		t.Fatalf("wrong game: %q", msg.Game)
	}
}

func TestEncodeServerStampsVersion(t *testing.T) {
	data, err := EncodeServer(ServerMessage{Type: ServerWelcome, Room: "r1"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if decoded["ver"] != float64(ProtocolVersion) {
		t.Fatalf("version not stamped: %v", decoded)
	}
	if decoded["type"] != ServerWelcome {
		t.Fatalf("wrong type: %v", decoded)
	}
}
