package exporters

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Options carries the format-specific export knobs. IncludeMetadata
// defaults to true and only affects the JSON format; DeckName is
// required for Anki packages.
type Options struct {
	DeckName        string `json:"deck_name" validate:"omitempty,max=100"`
	IncludeMetadata bool   `json:"include_metadata"`
}

// DefaultOptions returns the options used when a caller passes none.
func DefaultOptions() Options {
	return Options{IncludeMetadata: true}
}

var validate = validator.New()

// ankiOptions narrows validation for the Anki format, where the deck
// name becomes mandatory.
type ankiOptions struct {
	DeckName string `validate:"required,max=100"`
}

// ValidateExportOptions checks options against the requested format and
// returns one human-readable message per problem. It never panics or
// returns an error value; callers show the whole list at once.
func ValidateExportOptions(opts Options, format Format) []string {
	var problems []string

	if _, known := MIMETypes[format]; !known {
		problems = append(problems, "Invalid export format specified")
	}

	var err error
	if format == FormatAnki {
		err = validate.Struct(ankiOptions{DeckName: opts.DeckName})
	} else {
		err = validate.Struct(opts)
	}
	if err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				problems = append(problems, optionMessage(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	return problems
}

// ParseOptions converts a loosely typed options payload (e.g. decoded
// request JSON) into Options, collecting type errors instead of
// guessing at intent.
func ParseOptions(raw map[string]any) (Options, []string) {
	opts := DefaultOptions()
	var problems []string

	if v, present := raw["deck_name"]; present {
		s, ok := v.(string)
		if !ok {
			problems = append(problems, "deck_name must be a string")
		} else {
			opts.DeckName = s
		}
	}
	if v, present := raw["include_metadata"]; present {
		b, ok := v.(bool)
		if !ok {
			problems = append(problems, "include_metadata must be a boolean")
		} else {
			opts.IncludeMetadata = b
		}
	}

	return opts, problems
}

func optionMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "deck_name must not be empty"
	case "max":
		return fmt.Sprintf("deck_name must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
