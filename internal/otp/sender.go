package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Sender delivers an issued code to the phone owner.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// Message renders the text sent with a code.
func Message(code string, ttl time.Duration) string {
	return fmt.Sprintf("*Kode Verifikasi OTP*\nKode OTP Anda: *%s*\nKode ini berlaku selama %d menit.\nJangan bagikan kode ini kepada siapapun.",
		code, int(ttl.Minutes()))
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Logger zerolog.Logger
}

// Send logs the message at debug level and the recipient at info level.
func (s LogSender) Send(_ context.Context, phone, message string) error {
	s.Logger.Info().Str("phone", phone).Msg("otp issued")
	s.Logger.Debug().Str("phone", phone).Str("message", message).Msg("otp message")
	return nil
}
