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

// DialerConfig holds what outbound call placement needs beyond REST
// credentials.
type DialerConfig struct {
	TwilioConfig
	FromNumber string // caller ID, E.164
	MediaURL   string // wss URL of the media server, e.g. "wss://host/media"
}

// Dialer places outbound calls whose audio is bridged straight onto
// the media websocket.
type Dialer struct {
	client *twilio.RestClient
	from   string
	media  string
	log    *logger.Logger
}

// NewDialer creates an outbound dialer.
func NewDialer(config DialerConfig) (*Dialer, error) {
	if config.FromNumber == "" {
		return nil, fmt.Errorf("dialer requires a from number")
	}
	if config.MediaURL == "" {
		return nil, fmt.Errorf("dialer requires a media stream URL")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})
	return &Dialer{
		client: client,
		from:   config.FromNumber,
		media:  config.MediaURL,
		log:    logger.WithPrefix("Dialer"),
	}, nil
}

// StreamTwiML builds the answer document that connects the call to a
// media websocket.
func StreamTwiML(mediaURL string) string {
	var escaped bytes.Buffer
	xml.EscapeText(&escaped, []byte(mediaURL))
	return fmt.Sprintf(`<Response><Connect><Stream url="%s"/></Connect></Response>`, escaped.String())
}

// Dial places a call to the given number and returns the new call SID.
// The SID is known before the media stream connects, so the caller can
// register per-call context under it.
func (d *Dialer) Dial(ctx context.Context, to string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("dial target is empty")
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(d.from)
	params.SetTwiml(StreamTwiML(d.media))

	call, err := d.client.Api.CreateCall(params)
	if err != nil {
		d.log.Error("Call placement failed to=%s: %v", to, err)
		return "", fmt.Errorf("placing call: %w", err)
	}
	if call.Sid == nil {
		return "", fmt.Errorf("carrier returned no call SID")
	}

	d.log.Info("Placed call sid=%s to=%s", *call.Sid, to)
	return *call.Sid, nil
}
