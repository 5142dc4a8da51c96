package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 5 * time.Minute
	// DefaultCodeLength is the number of digits in a code.
	DefaultCodeLength = 6
)

// ServiceConfig holds configuration for the OTP service.
type ServiceConfig struct {
	Store  Store
	Sender Sender

	// TTL of issued codes (default 5 minutes).
	TTL time.Duration
	// CodeLength in digits (default 6, between 4 and 10).
	CodeLength int
	// ExposeCode returns the code in the Challenge. Development only.
	ExposeCode bool

	Logger zerolog.Logger

	// Rand is the randomness source; defaults to crypto/rand.
	Rand io.Reader
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Service issues and verifies codes.
type Service struct {
	store      Store
	sender     Sender
	ttl        time.Duration
	codeLength int
	exposeCode bool
	logger     zerolog.Logger
	rand       io.Reader
	now        func() time.Time
}

// NewService creates an OTP service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("otp: store is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CodeLength == 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	if cfg.CodeLength < 4 || cfg.CodeLength > 10 {
		return nil, fmt.Errorf("otp: code length %d out of range [4, 10]", cfg.CodeLength)
	}
	if cfg.Sender == nil {
		cfg.Sender = LogSender{Logger: cfg.Logger}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:      cfg.Store,
		sender:     cfg.Sender,
		ttl:        cfg.TTL,
		codeLength: cfg.CodeLength,
		exposeCode: cfg.ExposeCode,
		logger:     cfg.Logger,
		rand:       cfg.Rand,
		now:        cfg.Now,
	}, nil
}

// TTL returns how long issued codes stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Send issues a new code for phone, replacing any pending one, and delivers it.
func (s *Service) Send(ctx context.Context, phone string) (*Challenge, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generating otp: %w", err)
	}

	if err := s.store.Save(ctx, normalized, code, s.ttl); err != nil {
		return nil, err
	}

	if err := s.sender.Send(ctx, normalized, Message(code, s.ttl)); err != nil {
		// An undeliverable code must not stay redeemable.
		_ = s.store.Delete(ctx, normalized)
		return nil, fmt.Errorf("sending otp: %w", err)
	}

	challenge := &Challenge{
		Phone:     normalized,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if s.exposeCode {
		challenge.Code = code
	}
	return challenge, nil
}

// Verify checks code against the pending code for phone. A matching code is
// consumed and cannot be used again. It returns the normalized phone number.
func (s *Service) Verify(ctx context.Context, phone, code string) (string, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}

	err = s.store.Consume(ctx, normalized, strings.TrimSpace(code))
	if errors.Is(err, ErrCodeMismatch) {
		s.logger.Info().Str("phone", normalized).Msg("otp mismatch")
	}
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("phone", normalized).Msg("otp verified")
	return normalized, nil
}

// generate returns a code with exactly codeLength digits and no leading zero.
func (s *Service) generate() (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.codeLength-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(s.rand, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, low).String(), nil
}
