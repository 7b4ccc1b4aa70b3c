// Package control implements the application-level protocol exchanged with
// the remote client over the room's reliable data channel. Messages are small
// JSON objects with a required "type" discriminant; the channel carries
// best-effort side signals, never session-critical data.
package control

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TypeToolUse           = "tool_use"
	TypeSearchSources     = "search_sources"
	TypeRequestEmailInput = "request_email_input"
	TypeCloseEmailPopup   = "close_email_popup"
	TypeEmailResponse     = "email_response"
)

// MaxSearchSources caps how many result references are pushed to the client.
const MaxSearchSources = 5

type DecodeError struct {
	Code    string
	Message string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func decodeFailed(message string) *DecodeError {
	return &DecodeError{Code: "decode_failed", Message: message}
}

// Source is one search result reference surfaced to the client UI.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ToolUse notifies the client that a capability was invoked.
type ToolUse struct {
	Type string `json:"type"`
	Tool string `json:"tool"`
}

// SearchSources pushes zero or more result references to the client.
type SearchSources struct {
	Type    string   `json:"type"`
	Sources []Source `json:"sources"`
}

// RequestEmailInput asks the client to open its typed email entry.
type RequestEmailInput struct {
	Type string `json:"type"`
}

// CloseEmailPopup cancels the typed email entry on the client.
type CloseEmailPopup struct {
	Type string `json:"type"`
}

// EmailResponse carries a typed email address back from the client.
type EmailResponse struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

func EncodeToolUse(tool string) ([]byte, error) {
	return json.Marshal(ToolUse{Type: TypeToolUse, Tool: tool})
}

func EncodeSearchSources(sources []Source) ([]byte, error) {
	if len(sources) > MaxSearchSources {
		sources = sources[:MaxSearchSources]
	}
	if sources == nil {
		sources = []Source{}
	}
	return json.Marshal(SearchSources{Type: TypeSearchSources, Sources: sources})
}

func EncodeRequestEmailInput() ([]byte, error) {
	return json.Marshal(RequestEmailInput{Type: TypeRequestEmailInput})
}

func EncodeCloseEmailPopup() ([]byte, error) {
	return json.Marshal(CloseEmailPopup{Type: TypeCloseEmailPopup})
}

// DecodePeerMessage decodes one inbound data-channel payload. The closed set
// of peer-originated variants is currently just email_response; anything else
// is a *DecodeError the caller is expected to drop at debug level.
func DecodePeerMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, decodeFailed("payload is not valid json")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, decodeFailed("missing type")
	}

	switch typ {
	case TypeEmailResponse:
		var msg EmailResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, decodeFailed("invalid email_response")
		}
		return msg, nil
	default:
		return nil, decodeFailed(fmt.Sprintf("unrecognized type %q", typ))
	}
}
