// Copyright (c) 2026 DevSearch. All rights reserved.

package notify

import (
	"fmt"
	"net/smtp"

	"github.com/devsearchhq/devsearch/internal/platform/config"
)

// # Templates

type template struct {
	subject string
	body    string
}

// render produces the subject and body for a message kind. Unknown kinds
// fall back to a generic notification so delivery never silently drops a
// queued message.
func render(message Message) template {
	switch message.Kind {
	case KindVerificationOtp:
		return template{
			subject: "Verify your DevSearch account",
			body: fmt.Sprintf(
				"Hi %s,\n\nYour verification code is %s. It expires in 15 minutes.\n\nIf you did not create a DevSearch account, you can ignore this email.",
				message.Context["name"], message.Context["otp"],
			),
		}
	case KindWelcome:
		return template{
			subject: "Welcome to DevSearch",
			body: fmt.Sprintf(
				"Hi %s,\n\nYour account is verified and ready to use. Glad to have you on board.",
				message.Context["name"],
			),
		}
	case KindResetOtp:
		return template{
			subject: "Reset your DevSearch password",
			body: fmt.Sprintf(
				"Hi %s,\n\nYour password reset code is %s. It expires in 15 minutes.\n\nIf you did not request a reset, no action is needed.",
				message.Context["name"], message.Context["otp"],
			),
		}
	case KindResetSuccess:
		return template{
			subject: "Your DevSearch password was changed",
			body: fmt.Sprintf(
				"Hi %s,\n\nYour password was just changed. If this was not you, reset it again immediately.",
				message.Context["name"],
			),
		}
	}

	return template{subject: "DevSearch notification", body: "You have a new notification from DevSearch."}
}

// # SMTP Sender

// SMTPSender delivers messages over plain-auth SMTP.
type SMTPSender struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPSender creates a sender from the application configuration.
func NewSMTPSender(configuration *config.Config) *SMTPSender {
	return &SMTPSender{
		host: configuration.SMTPHost,
		port: configuration.SMTPPort,
		user: configuration.SMTPUser,
		pass: configuration.SMTPPass,
		from: configuration.SMTPFrom,
	}
}

/*
Send renders and delivers a single message.

Parameters:
  - message: Message

Returns:
  - error: SMTP dial, auth, or delivery failures
*/
func (sender *SMTPSender) Send(message Message) error {
	rendered := render(message)

	payload := []byte(
		"From: " + sender.from + "\r\n" +
			"To: " + message.Recipient + "\r\n" +
			"Subject: " + rendered.subject + "\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			rendered.body + "\r\n")

	address := fmt.Sprintf("%s:%s", sender.host, sender.port)
	auth := smtp.PlainAuth("", sender.user, sender.pass, sender.host)

	if err := smtp.SendMail(address, auth, sender.from, []string{message.Recipient}, payload); err != nil {
		return fmt.Errorf("notify_send_failed: %w", err)
	}

	return nil
}
