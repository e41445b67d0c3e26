package authcore

import "context"

// TemplateID names a message template understood by dispatchers.
type TemplateID string

const (
	TemplateVerifyEmail   TemplateID = "verify-email"
	TemplatePasswordReset TemplateID = "reset-password"
)

// Template parameter keys set by the engine.
const (
	ParamToken = "token"
	ParamEmail = "email"
	ParamLink  = "link"
)

// EmailDispatcher delivers a templated message. Implementations must report
// delivery failure through the returned error; the engine logs (but does
// not roll back) failures that happen after a committed state change,
// since redelivery is the dispatcher's concern.
type EmailDispatcher interface {
	Send(ctx context.Context, to string, template TemplateID, params map[string]string) error
}
