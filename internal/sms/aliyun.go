package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v3/client"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
)

// AliyunSender sends messages through Aliyun Dysmsapi (2017-05-25).
type AliyunSender struct {
	client *dysmsapi.Client
}

func NewAliyunSender(cfg Config) (*AliyunSender, error) {
	if cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, errors.New("sms: access key id and secret are required")
	}
	c := &openapi.Config{
		AccessKeyId:     tea.String(cfg.AccessKeyID),
		AccessKeySecret: tea.String(cfg.AccessKeySecret),
		Endpoint:        tea.String(cfg.Endpoint),
	}
	client, err := dysmsapi.NewClient(c)
	if err != nil {
		return nil, fmt.Errorf("sms client: %w", err)
	}
	return &AliyunSender{client: client}, nil
}

// Send issues one SendSms call. The SDK call is not context aware, so ctx is
// only checked before the request starts.
func (s *AliyunSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := &dysmsapi.SendSmsRequest{
		PhoneNumbers:  tea.String(msg.PhoneNumbers),
		SignName:      tea.String(msg.SignName),
		TemplateCode:  tea.String(msg.TemplateCode),
		TemplateParam: tea.String(msg.TemplateParam),
	}
	resp, err := s.client.SendSmsWithOptions(req, &util.RuntimeOptions{})
	if err != nil {
		var sdkErr *tea.SDKError
		if errors.As(err, &sdkErr) {
			return &VendorError{
				Code:      tea.StringValue(sdkErr.Code),
				Message:   tea.StringValue(sdkErr.Message),
				Recommend: recommendFrom(tea.StringValue(sdkErr.Data)),
			}
		}
		return err
	}
	if resp == nil || resp.Body == nil {
		return &VendorError{Message: "empty response"}
	}
	if code := tea.StringValue(resp.Body.Code); code != "OK" {
		return &VendorError{Code: code, Message: tea.StringValue(resp.Body.Message)}
	}
	return nil
}

// recommendFrom extracts the diagnosis URL the vendor puts in the error data.
func recommendFrom(data string) string {
	if data == "" {
		return ""
	}
	var d struct {
		Recommend string `json:"Recommend"`
	}
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return ""
	}
	return d.Recommend
}
