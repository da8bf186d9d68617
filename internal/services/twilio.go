package services

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Twilio error codes meaning the destination number itself is bad.
var twilioInvalidNumberCodes = map[int]bool{
	21211: true, // invalid 'To' phone number
	21610: true, // unsubscribed recipient
	21614: true, // not a valid mobile number
	63003: true, // channel could not find the address
}

// TwilioGateway sends WhatsApp messages through the Twilio API
type TwilioGateway struct {
	client *twilio.RestClient
	from   string // "whatsapp:+14155238886"
}

// NewTwilioGateway creates a new Twilio-backed gateway
func NewTwilioGateway() (*TwilioGateway, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioGateway{
		client: client,
		from:   from,
	}, nil
}

// SendText sends a WhatsApp message via Twilio
func (t *TwilioGateway) SendText(to, text string) (SendResult, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(text)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) && twilioInvalidNumberCodes[restErr.Code] {
			log.Printf("❌ Number rejected by Twilio (%d): %s", restErr.Code, to)
			return SendResult{Sent: false, InvalidNumber: true}, nil
		}
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return SendResult{}, err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return SendResult{Sent: true}, nil
}

// Connect is a no-op: Twilio is a stateless HTTP API.
func (t *TwilioGateway) Connect() error { return nil }

// Close is a no-op for Twilio.
func (t *TwilioGateway) Close() {}
