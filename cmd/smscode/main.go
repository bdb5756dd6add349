// Command smscode sends a one-time verification code by SMS.
//
//	smscode -phone 15500000000 [-code 741852]
//
// Credentials and the message template come from SMS_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/sms"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

func main() {
	phone := flag.String("phone", "", "destination phone number")
	code := flag.String("code", "", "numeric code to send (random when empty)")
	digits := flag.Int("digits", sms.DefaultCodeDigits, "length of a generated code")
	flag.Parse()

	smsCfg, logCfg, err := config.SenderOnly()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg, err := utilities.Init(*logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	if *phone == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *code == "" {
		if *code, err = sms.GenerateCode(*digits); err != nil {
			sugar.Fatalf("generate code: %v", err)
		}
	}

	sender, err := sms.NewAliyunSender(*smsCfg)
	if err != nil {
		sugar.Fatalf("sms sender: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sms.NewNotifier(sender, *smsCfg, sugar).SendCode(ctx, *phone, *code); err != nil {
		sugar.Errorf("send code: %v", err)
		lg.Sync()
		os.Exit(1)
	}
	fmt.Println(*code)
}
