// Package sms sends one-time verification codes through a cloud SMS vendor.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrVendorCall     = errors.New("sms vendor call failed")
	ErrInvalidRequest = errors.New("invalid sms request")
)

// Config is read from SMS_* env vars.
type Config struct {
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	AccessKeySecret string `env:"ACCESS_KEY_SECRET"`
	Endpoint        string `env:"ENDPOINT" envDefault:"dysmsapi.aliyuncs.com"`
	SignName        string `env:"SIGN_NAME"`
	TemplateCode    string `env:"TEMPLATE_CODE"`
}

// Message is one templated SMS as the vendor expects it.
type Message struct {
	PhoneNumbers  string
	SignName      string
	TemplateCode  string
	TemplateParam string
}

// Sender delivers a single message. Implementations must not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// VendorError carries the vendor's diagnostics for a failed send.
type VendorError struct {
	Code      string
	Message   string
	Recommend string
}

func (e *VendorError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Notifier fills the verification template and hands it to a Sender.
type Notifier struct {
	sender       Sender
	signName     string
	templateCode string
	logger       *zap.SugaredLogger
}

func NewNotifier(sender Sender, cfg Config, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{sender: sender, signName: cfg.SignName, templateCode: cfg.TemplateCode, logger: logger}
}

// SendCode sends code to phoneNumber once. A failed call is logged and
// returned wrapping ErrVendorCall; calling again may deliver a second message.
func (n *Notifier) SendCode(ctx context.Context, phoneNumber, code string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return fmt.Errorf("%w: phone number is required", ErrInvalidRequest)
	}
	if !isDigits(code) {
		return fmt.Errorf("%w: code must be numeric", ErrInvalidRequest)
	}
	if n.signName == "" || n.templateCode == "" {
		return fmt.Errorf("%w: sign name and template code must be configured", ErrInvalidRequest)
	}
	param, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return err
	}
	msg := Message{
		PhoneNumbers:  phoneNumber,
		SignName:      n.signName,
		TemplateCode:  n.templateCode,
		TemplateParam: string(param),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		fields := []any{"phone", phoneNumber, "template", n.templateCode, "err", err}
		var ve *VendorError
		if errors.As(err, &ve) && ve.Recommend != "" {
			fields = append(fields, "recommend", ve.Recommend)
		}
		n.logger.Errorw("send sms failed", fields...)
		return fmt.Errorf("%w: %w", ErrVendorCall, err)
	}
	n.logger.Infow("sms code sent", "phone", phoneNumber, "template", n.templateCode)
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
