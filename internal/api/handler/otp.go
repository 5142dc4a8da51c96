package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/simbok/delivery/internal/api/models"
	"github.com/simbok/delivery/internal/api/response"
	"github.com/simbok/delivery/internal/otp"
)

// OTPService issues and verifies one-time codes. *otp.Service implements it.
type OTPService interface {
	Send(ctx context.Context, phone string) (*otp.Challenge, error)
	Verify(ctx context.Context, phone, code string) (string, error)
	TTL() time.Duration
}

// OTPHandler handles one-time code endpoints.
type OTPHandler struct {
	codes OTPService
}

// NewOTPHandler creates a new OTPHandler.
func NewOTPHandler(codes OTPService) *OTPHandler {
	return &OTPHandler{codes: codes}
}

// Send handles POST /v1/otp:send.
func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var body models.OTPSendRequest
	if !decode(w, r, &body) {
		return
	}

	challenge, err := h.codes.Send(r.Context(), body.Phone)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, r, models.OTPSendResponse{
		Success:          true,
		Message:          "OTP berhasil dikirim",
		Phone:            challenge.Phone,
		ExpiresAt:        models.Timestamp(challenge.ExpiresAt),
		ExpiresInSeconds: int(h.codes.TTL().Seconds()),
		OTP:              challenge.Code,
	})
}

// Verify handles POST /v1/otp:verify.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var body models.OTPVerifyRequest
	if !decode(w, r, &body) {
		return
	}

	phone, err := h.codes.Verify(r.Context(), body.Phone, body.OTP)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, r, models.OTPVerifyResponse{
		Success:  true,
		Message:  "OTP berhasil diverifikasi",
		Phone:    phone,
		Verified: true,
	})
}
