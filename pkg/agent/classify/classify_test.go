package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		room     string
		want     CallType
	}{
		{"sip underscore identity", "sip_+15551234567", "room-1", CallTypePhone},
		{"sip colon identity", "sip:+15551234567", "room-1", CallTypePhone},
		{"bare number identity", "+15551234567", "room-1", CallTypePhone},
		{"sip room prefix", "user-abc", "sip-inbound-42", CallTypePhone},
		{"number embedded in room", "user-abc", "call_+15551234567_x9", CallTypePhone},
		{"web identity and room", "user-abc", "playground-room", CallTypeWebRTC},
		{"empty inputs", "", "", CallTypeWebRTC},
		{"sip marker not at start", "user-sip_x", "room-sip-1", CallTypeWebRTC},
		{"plus not at start", "user+tag", "room-1", CallTypeWebRTC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.identity, tt.room); got != tt.want {
				t.Fatalf("Classify(%q, %q) = %v, want %v", tt.identity, tt.room, got, tt.want)
			}
		})
	}
}

func TestCallTypeDisplayName(t *testing.T) {
	if got := CallTypePhone.DisplayName(); got != "Phone Call" {
		t.Fatalf("phone display name = %q", got)
	}
	if got := CallTypeWebRTC.DisplayName(); got != "WebRTC" {
		t.Fatalf("webrtc display name = %q", got)
	}
}
