package tools

import (
	"context"
	"log/slog"

	"github.com/vocalize-ai/vocalize-agent/pkg/agent/control"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/mail"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/llm"
)

// SendEmailExecutor sends an email the user has dictated and confirmed.
type SendEmailExecutor struct {
	sender mail.Sender
	logger *slog.Logger
}

func NewSendEmail(sender mail.Sender, logger *slog.Logger) *SendEmailExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendEmailExecutor{sender: sender, logger: logger}
}

func (e *SendEmailExecutor) Name() string {
	return ToolSendEmail
}

func (e *SendEmailExecutor) Definition() llm.ToolDef {
	return llm.ToolDef{
		Name:        ToolSendEmail,
		Description: "Send an email to a specified recipient. Always confirm the recipient email, subject, and message with the user before calling this function.",
		Parameters: objectSchema(map[string]any{
			"recipient_email": stringParam("The email address to send to (e.g., user@example.com)"),
			"subject":         stringParam("The subject line of the email"),
			"message":         stringParam("The body content of the email"),
		}, "recipient_email", "subject", "message"),
	}
}

func (e *SendEmailExecutor) Execute(ctx context.Context, input map[string]any) string {
	to := stringInput(input, "recipient_email")
	subject := stringInput(input, "subject")
	message := stringInput(input, "message")

	e.logger.Info("sending email", "to", to, "subject", subject)
	result := e.sender.Send(ctx, to, subject, message)
	if result.Success {
		return "Great news! I've successfully sent the email to " + to + "."
	}
	return "I'm sorry, I couldn't send the email. " + result.Message
}

// RequestEmailInputExecutor opens the typed email entry on the client.
type RequestEmailInputExecutor struct {
	proto  *control.Protocol
	logger *slog.Logger
}

func NewRequestEmailInput(proto *control.Protocol, logger *slog.Logger) *RequestEmailInputExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestEmailInputExecutor{proto: proto, logger: logger}
}

func (e *RequestEmailInputExecutor) Name() string {
	return ToolRequestEmailInput
}

func (e *RequestEmailInputExecutor) Definition() llm.ToolDef {
	return llm.ToolDef{
		Name:        ToolRequestEmailInput,
		Description: "Request the user to type their email address in a popup on their screen. Use this when the user says they want to TYPE their email address instead of speaking it. After the user submits, you will be notified with their email address.",
		Parameters: objectSchema(map[string]any{
			"confirm": boolParam("Set to true to open the popup. Default is true."),
		}),
	}
}

func (e *RequestEmailInputExecutor) Execute(ctx context.Context, input map[string]any) string {
	if !boolInput(input, "confirm", true) {
		return "Okay, you can speak your email address instead."
	}
	if err := e.proto.RequestEmailInput(ctx); err != nil {
		e.logger.Error("could not request email input", "error", err)
		return "Sorry, I couldn't open the email input. Could you please speak your email address instead?"
	}
	return "I've opened an input box on your screen. Please type your email address there and click submit. I'll wait for you."
}

// CloseEmailPopupExecutor dismisses the typed email entry.
type CloseEmailPopupExecutor struct {
	proto  *control.Protocol
	logger *slog.Logger
}

func NewCloseEmailPopup(proto *control.Protocol, logger *slog.Logger) *CloseEmailPopupExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloseEmailPopupExecutor{proto: proto, logger: logger}
}

func (e *CloseEmailPopupExecutor) Name() string {
	return ToolCloseEmailPopup
}

func (e *CloseEmailPopupExecutor) Definition() llm.ToolDef {
	return llm.ToolDef{
		Name:        ToolCloseEmailPopup,
		Description: "Close the email input popup on the user's screen. Use this when the user asks to close, cancel, or dismiss the email input popup.",
		Parameters: objectSchema(map[string]any{
			"confirm": boolParam("Set to true to close the popup. Default is true."),
		}),
	}
}

func (e *CloseEmailPopupExecutor) Execute(ctx context.Context, input map[string]any) string {
	if !boolInput(input, "confirm", true) {
		return "Okay, the popup will stay open."
	}
	if err := e.proto.CloseEmailPopup(ctx); err != nil {
		e.logger.Error("could not close email popup", "error", err)
		return "I couldn't close the popup. You can click the X button on the popup to close it."
	}
	return "I've closed the email input. Would you like to speak your email address instead, or do something else?"
}
