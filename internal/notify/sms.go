package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// twilioSender dispatches SMS through the Twilio REST API.
type twilioSender struct {
	client *twilio.RestClient
	from   string
}

func newTwilioSender(sid, token, from string) *twilioSender {
	return &twilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: sid,
			Password: token,
		}),
		from: from,
	}
}

// Send implements smsSender. The Twilio SDK has no context plumbing on this
// call; ctx is checked up front so a cancelled run skips the dispatch.
func (t *twilioSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}
