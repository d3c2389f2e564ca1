package helpers

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// OTP codes are 6 digits drawn uniformly from [OTPMin, OTPMax].
const (
	OTPMin = 100000
	OTPMax = 999999
)

var otpSpan = big.NewInt(OTPMax - OTPMin + 1)

// GenOTPCode generates a secure random 6-digit OTP code
func GenOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+OTPMin, 10), nil
}
