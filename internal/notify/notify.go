// Copyright (c) 2026 DevSearch. All rights reserved.

// Package notify delivers transactional email through a bounded background
// queue, keeping SMTP latency and failures off the request path.
package notify

// # Message Kinds

const (
	KindVerificationOtp = "verification_otp"
	KindWelcome         = "welcome"
	KindResetOtp        = "reset_otp"
	KindResetSuccess    = "reset_success"
)

// Message is a single notification awaiting delivery.
type Message struct {
	Kind      string
	Recipient string
	Context   map[string]string
}

// Sender delivers a rendered message to its recipient.
type Sender interface {
	Send(message Message) error
}
