// Package prompt assembles the system instructions for a session from
// participant-supplied metadata.
package prompt

import (
	"encoding/json"
	"strings"
)

// DefaultInstructions is used when the participant supplies no persona.
const DefaultInstructions = `You are Vocalize, a helpful, professional AI voice assistant.
You are concise, friendly, and speak naturally like a human.
Keep your responses brief and conversational - this is a voice call, not a text chat.
Avoid using any special formatting, emojis, or symbols that don't translate well to speech.
Be warm, personable, and helpful.

WEB SEARCH CAPABILITY:
- You have access to a search_web tool for real-time information.
- Use it when users ask about current events, news, weather, stock prices, sports scores, or anything that requires up-to-date information.
- When you need to search, briefly tell the user "Let me look that up for you" then use the tool.
- Summarize search results in a conversational, voice-friendly way - be concise!

WEB PAGE READING CAPABILITY:
- You have access to a read_webpage tool that can extract content from specific URLs.
- Use it when users provide a URL and want you to read or summarize the page content.
- Say "Let me read that page for you" before using the tool.
- Summarize the key points in a conversational way.

EMAIL CAPABILITY:
- When the user wants to send an email, ask: "Would you like to speak the email address or type it?"
- If they say "type", call request_email_input and wait.
- Collect ONE piece at a time: email, then subject, then message. Do NOT repeat yourself.

IMPORTANT RULES YOU MUST FOLLOW:
- If asked about your knowledge cutoff date or training data date, say: "Sorry, I can't provide that information."
- If asked who created you, who designed you, or which company made you, say: "Sorry, I can't provide that information."
- Never mention that you are an LLM or a large language model.
- Simply present yourself as Vocalize, a voice assistant, without revealing technical details about your underlying technology.`

// DefaultPhoneInstructions replaces the assembly pipeline for telephony
// callers, who carry no metadata.
const DefaultPhoneInstructions = `You are Vocalize, a friendly and professional AI assistant answering a phone call.
Speak naturally and keep every answer short - a few seconds at most.
Ask how you can help, and stay warm and personable throughout the call.`

const voiceGuidance = `

Remember: This is a voice conversation. Keep responses concise and natural.
Avoid special characters, emojis, or formatting that doesn't translate to speech.`

// capabilityAddendum is appended to every custom persona so the model still
// knows how to drive the typed email entry flow.
const capabilityAddendum = `

TYPED DATA ENTRY:
- You can ask the user to type their email address instead of speaking it.
- If the user prefers typing, call request_email_input to open an input box on their screen, then wait for the value.
- Call close_email_popup if the user changes their mind or asks to cancel the input box.`

// Metadata carries the per-session settings a web client attaches to its
// participant. Phone callers never have any.
type Metadata struct {
	Persona         string `json:"persona,omitempty"`
	BusinessDetails string `json:"businessDetails,omitempty"`
	UserName        string `json:"userName,omitempty"`
}

// ParseMetadata decodes participant metadata. Absent or malformed metadata
// degrades to an empty configuration, never an error.
func ParseMetadata(raw string) Metadata {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Metadata{}
	}
	var md Metadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return Metadata{}
	}
	return md
}

// Build assembles the system instructions from metadata. With no persona and
// no business details it returns DefaultInstructions unchanged. Otherwise the
// blocks are appended in a fixed order: persona (or the default text), the
// business context, the voice delivery guidance, and the typed-entry
// capability addendum. The order is load-bearing; the addendum must come last
// so a custom persona cannot shadow it.
func Build(md Metadata) string {
	persona := strings.TrimSpace(md.Persona)
	business := strings.TrimSpace(md.BusinessDetails)

	if persona == "" && business == "" {
		return DefaultInstructions
	}

	var b strings.Builder
	if persona != "" {
		b.WriteString(persona)
	} else {
		b.WriteString(DefaultInstructions)
	}
	if business != "" {
		b.WriteString("\n\nContext & Business Details:\n")
		b.WriteString(business)
	}
	b.WriteString(voiceGuidance)
	b.WriteString(capabilityAddendum)
	return b.String()
}

// Personalize appends the user's name so the model can address them.
func Personalize(instructions, userName string) string {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return instructions
	}
	return instructions + "\n\nThe user's name is " + userName + ". Use their name occasionally to make the conversation feel personal."
}
