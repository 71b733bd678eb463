// Package telephony executes call-control actions against the carrier.
package telephony

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/sonara-labs/dialtone/src/logger"
)

// Route is a transfer destination: the number to dial plus optional
// DTMF digits ('w' pauses allowed) played into the call before the
// redirect, for targets that sit behind an extension menu.
type Route struct {
	Number string
	Digits string
}

// TransferExecutor redirects a live call to a route. Implementations
// return an error when the redirect did not take; the session decides
// how to recover on the line.
type TransferExecutor interface {
	Transfer(ctx context.Context, callSID string, route Route) error
}

// TwilioConfig holds REST credentials for call control.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
}

// TwilioTransfer performs blind transfers by updating the live call
// with Dial TwiML. No bridge narration; the announcement already
// happened on the media stream.
type TwilioTransfer struct {
	client *twilio.RestClient
	log    *logger.Logger
}

// NewTwilioTransfer creates a transfer executor.
func NewTwilioTransfer(config TwilioConfig) *TwilioTransfer {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})
	return &TwilioTransfer{
		client: client,
		log:    logger.WithPrefix("Transfer"),
	}
}

// DialTwiML builds the redirect document for a blind transfer.
func DialTwiML(number string) string {
	var escaped bytes.Buffer
	xml.EscapeText(&escaped, []byte(number))
	return fmt.Sprintf("<Response><Dial>%s</Dial></Response>", escaped.String())
}

// Transfer redirects the call to the route's number.
func (t *TwilioTransfer) Transfer(ctx context.Context, callSID string, route Route) error {
	if route.Number == "" {
		return fmt.Errorf("transfer route has no number")
	}

	params := &twilioApi.UpdateCallParams{}
	params.SetTwiml(DialTwiML(route.Number))

	if _, err := t.client.Api.UpdateCall(callSID, params); err != nil {
		t.log.Error("Transfer failed call=%s target=%s: %v", callSID, route.Number, err)
		return fmt.Errorf("redirecting call: %w", err)
	}
	t.log.Info("Blind transfer initiated call=%s target=%s", callSID, route.Number)
	return nil
}
