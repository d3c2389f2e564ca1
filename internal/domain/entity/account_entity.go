package entity

import (
	"time"
)

// Account is the aggregate root for the auth domain
// Passwords are stored as bcrypt hashes in PasswordHash.
//
// Each OTP pair is only meaningful while its code is non-empty; an empty code
// paired with a zero expiry means no challenge is outstanding.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	VerifyOTP          string    `json:"verify_otp"`
	VerifyOTPExpiresAt time.Time `json:"verify_otp_expires_at"`

	ResetOTP          string    `json:"reset_otp"`
	ResetOTPExpiresAt time.Time `json:"reset_otp_expires_at"`
}

// AccountSummary is the client-safe view of an account.
type AccountSummary struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	IsAccountVerified bool   `json:"isAccountVerified"`
}

// UserData is the payload of /api/user/get-user-data.
type UserData struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	IsAccountVerified bool   `json:"isAccountVerified"`
}

func (a *Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Name: a.Name, Email: a.Email, IsAccountVerified: a.IsVerified}
}

func (a *Account) UserData() UserData {
	return UserData{Name: a.Name, Email: a.Email, IsAccountVerified: a.IsVerified}
}

// ClearVerifyOTP drops the outstanding verification challenge.
func (a *Account) ClearVerifyOTP() {
	a.VerifyOTP = ""
	a.VerifyOTPExpiresAt = time.Time{}
}

// ClearResetOTP drops the outstanding reset challenge.
func (a *Account) ClearResetOTP() {
	a.ResetOTP = ""
	a.ResetOTPExpiresAt = time.Time{}
}
