package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/authcore-go/authcore"
)

// ErrSendFailed wraps transport-level delivery failures.
var ErrSendFailed = errors.New("failed to send email")

// Postmark sends mail through the Postmark transactional API.
type Postmark struct {
	client *postmark.Client
	from   string
}

// NewPostmark creates a Postmark-backed dispatcher. Both tokens and the
// sender address are required.
func NewPostmark(serverToken, accountToken, from string) (*Postmark, error) {
	if serverToken == "" || accountToken == "" {
		return nil, fmt.Errorf("postmark tokens are required")
	}
	if from == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	return &Postmark{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}, nil
}

func (p *Postmark) Send(ctx context.Context, to string, tpl authcore.TemplateID, params map[string]string) error {
	subject, body, err := render(tpl, params)
	if err != nil {
		return err
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.from,
		To:       to,
		Subject:  subject,
		HTMLBody: body,
		Tag:      string(tpl),
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: postmark error %d: %s", ErrSendFailed, resp.ErrorCode, resp.Message)
	}
	return nil
}
