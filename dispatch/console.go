package dispatch

import (
	"context"
	"log/slog"

	"github.com/authcore-go/authcore"
)

// Console is a development dispatcher that logs messages instead of
// sending them.
type Console struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Console) Send(ctx context.Context, to string, tpl authcore.TemplateID, params map[string]string) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	subject, _, err := render(tpl, params)
	if err != nil {
		return err
	}

	attrs := []any{
		slog.String("to", to),
		slog.String("template", string(tpl)),
		slog.String("subject", subject),
	}
	if link, ok := params[authcore.ParamLink]; ok {
		attrs = append(attrs, slog.String("link", link))
	} else if token, ok := params[authcore.ParamToken]; ok {
		attrs = append(attrs, slog.String("token", token))
	}

	logger.InfoContext(ctx, "email (console)", attrs...)
	return nil
}
