package message

import (
	"errors"
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"webhook-receiver/internal/domain"
)

// MaxTextLength is the maximum message text length in characters.
const MaxTextLength = 4096

var msisdnPattern = regexp.MustCompile(`^\+\d+$`)

// InboundMessage is the DTO for the POST /webhook body.
// Pointer fields keep "absent" apart from "empty".
type InboundMessage struct {
	MessageID *string `json:"message_id"`
	From      *string `json:"from"`
	To        *string `json:"to"`
	TS        *string `json:"ts"`
	Text      *string `json:"text"`
}

// Validate checks the payload against the message schema and returns a
// validation envelope listing every failing field.
func (m InboundMessage) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.MessageID, validation.Required.Error("must be a non-empty string")),
		validation.Field(&m.From,
			validation.Required.Error("is required"),
			validation.Match(msisdnPattern).Error(`must match ^\+\d+$`),
		),
		validation.Field(&m.To,
			validation.Required.Error("is required"),
			validation.Match(msisdnPattern).Error(`must match ^\+\d+$`),
		),
		validation.Field(&m.TS, validation.NotNil.Error("is required")),
		validation.Field(&m.Text, validation.RuneLength(0, MaxTextLength).Error("must be at most 4096 characters")),
	)
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return internalError(err, "message validation failed")
	}
	return validationError("invalid message payload", toFieldErrors(fieldErrs)...)
}

// toFieldErrors flattens ozzo errors into go-errors field errors, sorted by field.
func toFieldErrors(errs validation.Errors) []goerrors.FieldError {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]goerrors.FieldError, 0, len(fields))
	for _, field := range fields {
		out = append(out, goerrors.FieldError{
			Field:   field,
			Message: errs[field].Error(),
		})
	}
	return out
}

// toMessage converts a validated payload into the storage model.
func (m InboundMessage) toMessage() *domain.Message {
	msg := &domain.Message{
		MessageID:  deref(m.MessageID),
		FromMSISDN: deref(m.From),
		ToMSISDN:   deref(m.To),
		TS:         deref(m.TS),
	}
	if m.Text != nil {
		text := *m.Text
		msg.Text = &text
	}
	return msg
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
