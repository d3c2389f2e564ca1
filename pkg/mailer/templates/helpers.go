package templates

import (
	"strings"
	"time"

	"github.com/oksasatya/go-auth-service/config"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		d.Time = t.UTC().Format("02 January 2006, 15:04")
	}
}

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

// NewBaseEmailData fills the common fields and applies opts
func NewBaseEmailData(typ, name, email string, opts ...Option) EmailData {
	d := EmailData{Name: name, Email: email, Type: typ}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(Welcome, name, email, opts...))
}

func NewVerifyOTPData(name, email, code string, opts ...Option) map[string]any {
	d := NewBaseEmailData(VerifyOTP, name, email, opts...)
	d.Code = code
	return ToMap(d)
}

func NewResetOTPData(name, email, code string, opts ...Option) map[string]any {
	d := NewBaseEmailData(ResetOTP, name, email, opts...)
	d.Code = code
	return ToMap(d)
}

// Branding is stamped onto template data at delivery time.
type Branding struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

func BrandingFromConfig(cfg *config.Config) Branding {
	return Branding{AppName: cfg.AppName, CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL}
}

// Apply sets branding keys that the job did not set itself.
func (b Branding) Apply(data map[string]any) {
	set := func(key, val string) {
		if cur, ok := data[key].(string); !ok || strings.TrimSpace(cur) == "" {
			data[key] = val
		}
	}
	set("AppName", b.AppName)
	set("CompanyName", b.CompanyName)
	set("SupportURL", b.SupportURL)
}
