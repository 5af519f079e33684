// Package ingest decodes and validates the external payloads the
// engine consumes: the parsed configuration object and the repair
// event batch. Document parsing and natural-language interpretation
// happen upstream; this package only accepts their structured output.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/campusforge/timetable-engine/internal/events"
	"github.com/campusforge/timetable-engine/internal/model"
	appErrors "github.com/campusforge/timetable-engine/pkg/errors"
)

// Loader decodes configuration and event payloads with struct-tag
// validation.
type Loader struct {
	validate *validator.Validate
}

// NewLoader builds a Loader. A nil validate gets a fresh instance.
func NewLoader(validate *validator.Validate) *Loader {
	if validate == nil {
		validate = validator.New()
	}
	return &Loader{validate: validate}
}

// ParseConfig decodes a configuration object from JSON bytes and
// validates the required sections.
func (l *Loader) ParseConfig(data []byte) (*model.RawConfig, error) {
	var raw model.RawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfigurationInvalid.Code, appErrors.ErrConfigurationInvalid.Status, "decode configuration")
	}
	if err := l.validate.Struct(&raw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfigurationInvalid.Code, appErrors.ErrConfigurationInvalid.Status, "validate configuration")
	}
	return &raw, nil
}

// LoadConfig reads and parses a configuration file.
func (l *Loader) LoadConfig(path string) (*model.RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}
	return l.ParseConfig(data)
}

// ParseEvents decodes a repair event batch from JSON bytes. Unknown
// event types survive decoding; the applier reports them per event.
func (l *Loader) ParseEvents(data []byte) (events.Payload, error) {
	var payload events.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return events.Payload{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "decode events")
	}
	if err := l.validate.Struct(&payload); err != nil {
		return events.Payload{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "validate events")
	}
	return payload, nil
}

// LoadEvents reads and parses an event batch file.
func (l *Loader) LoadEvents(path string) (events.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return events.Payload{}, fmt.Errorf("read events %s: %w", path, err)
	}
	return l.ParseEvents(data)
}
