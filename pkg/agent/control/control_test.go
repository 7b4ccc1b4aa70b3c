package control

import (
	"encoding/json"
	"testing"
)

func TestDecodePeerMessage_EmailResponse(t *testing.T) {
	msg, err := DecodePeerMessage([]byte(`{"type":"email_response","email":"a@b.com"}`))
	if err != nil {
		t.Fatalf("DecodePeerMessage() error = %v", err)
	}
	resp, ok := msg.(EmailResponse)
	if !ok {
		t.Fatalf("decoded type = %T, want EmailResponse", msg)
	}
	if resp.Email != "a@b.com" {
		t.Fatalf("email = %q", resp.Email)
	}
}

func TestDecodePeerMessage_Malformed(t *testing.T) {
	for _, raw := range []string{
		`not json at all`,
		`{"email":"a@b.com"}`,
		`{"type":""}`,
		`{"type":"audio_frame"}`,
	} {
		_, err := DecodePeerMessage([]byte(raw))
		if err == nil {
			t.Fatalf("DecodePeerMessage(%q) expected error", raw)
		}
		if _, ok := err.(*DecodeError); !ok {
			t.Fatalf("err type = %T, want *DecodeError", err)
		}
	}
}

func TestEncodeToolUse(t *testing.T) {
	payload, err := EncodeToolUse("search_web")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "tool_use" || decoded["tool"] != "search_web" {
		t.Fatalf("payload = %s", payload)
	}
}

func TestEncodeSearchSources_CapsAtFive(t *testing.T) {
	sources := make([]Source, 9)
	for i := range sources {
		sources[i] = Source{URL: "https://e.com", Title: "t"}
	}
	payload, err := EncodeSearchSources(sources)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	var decoded SearchSources
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Sources) != MaxSearchSources {
		t.Fatalf("len(sources) = %d, want %d", len(decoded.Sources), MaxSearchSources)
	}
}

func TestEncodeSearchSources_EmptyStaysArray(t *testing.T) {
	payload, err := EncodeSearchSources(nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if string(payload) != `{"type":"search_sources","sources":[]}` {
		t.Fatalf("payload = %s", payload)
	}
}

func TestEncodeHandshakeMessages(t *testing.T) {
	req, err := EncodeRequestEmailInput()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if string(req) != `{"type":"request_email_input"}` {
		t.Fatalf("request payload = %s", req)
	}
	cls, err := EncodeCloseEmailPopup()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if string(cls) != `{"type":"close_email_popup"}` {
		t.Fatalf("close payload = %s", cls)
	}
}
