package models

// OTPSendRequest is the body of POST /v1/otp:send.
type OTPSendRequest struct {
	Phone string `json:"phone"`
}

// Validate reports a missing phone.
func (r *OTPSendRequest) Validate() []FieldError {
	if r.Phone == "" {
		return []FieldError{{Field: "phone", Message: "is required", Code: CodeRequired}}
	}
	return nil
}

// OTPSendResponse confirms a code was issued. OTP is only set in development.
type OTPSendResponse struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	Phone            string    `json:"phone"`
	ExpiresAt        Timestamp `json:"expires_at"`
	ExpiresInSeconds int       `json:"expires_in_seconds"`
	OTP              string    `json:"otp,omitempty"`
}

// OTPVerifyRequest is the body of POST /v1/otp:verify.
type OTPVerifyRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// Validate reports missing fields.
func (r *OTPVerifyRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Phone == "" {
		errs = append(errs, FieldError{Field: "phone", Message: "is required", Code: CodeRequired})
	}
	if r.OTP == "" {
		errs = append(errs, FieldError{Field: "otp", Message: "is required", Code: CodeRequired})
	}
	return errs
}

// OTPVerifyResponse confirms a code matched.
type OTPVerifyResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Phone    string `json:"phone"`
	Verified bool   `json:"verified"`
}
