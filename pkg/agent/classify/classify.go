// Package classify determines how a participant reached the agent.
package classify

import "strings"

// CallType identifies the ingress path for a session.
type CallType string

const (
	CallTypeWebRTC CallType = "webrtc"
	CallTypePhone  CallType = "phone"
)

// DisplayName returns the human-readable label used in persisted records.
func (t CallType) DisplayName() string {
	if t == CallTypePhone {
		return "Phone Call"
	}
	return "WebRTC"
}

// Classify reports whether a participant joined over SIP telephony or a web
// client. SIP participants carry an identity like "sip_+15551234567", and SIP
// rooms are named "sip-..." or embed the dialed number after an underscore.
// The heuristics are independent; any single match means a phone call.
func Classify(identity, roomName string) CallType {
	switch {
	case strings.HasPrefix(identity, "sip_"),
		strings.HasPrefix(identity, "sip:"),
		strings.HasPrefix(identity, "+"),
		strings.HasPrefix(roomName, "sip-"),
		strings.Contains(roomName, "_+"):
		return CallTypePhone
	}
	return CallTypeWebRTC
}
