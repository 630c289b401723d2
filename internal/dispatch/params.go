package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// maxBatchSources bounds one BatchConvert request.
const maxBatchSources = 1000

// ConvertFileParams are the parameters of ConvertFile.
type ConvertFileParams struct {
	InputFile    string    `json:"inputFile"`
	OutputFormat string    `json:"outputFormat"`
	InputFormat  string    `json:"inputFormat,omitempty"`
	OutputFile   string    `json:"outputFile,omitempty"`
	Options      OptionBag `json:"options,omitempty"`
}

// Validate checks required fields.
func (p ConvertFileParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.InputFile, validation.Required),
		validation.Field(&p.OutputFormat, validation.Required),
	)
}

// BatchConvertParams are the parameters of BatchConvert.
type BatchConvertParams struct {
	InputFiles        Sources   `json:"inputFiles"`
	OutputFormat      string    `json:"outputFormat"`
	InputFormat       string    `json:"inputFormat,omitempty"`
	OutputDir         string    `json:"outputDir,omitempty"`
	Options           OptionBag `json:"options,omitempty"`
	PreserveStructure Bool      `json:"preserveStructure,omitempty"`
}

// Validate checks required fields and the batch size.
func (p BatchConvertParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.InputFiles, validation.Required, validation.Length(1, maxBatchSources),
			validation.Each(validation.Required)),
		validation.Field(&p.OutputFormat, validation.Required),
	)
}

// ConvertFromContentParams are the parameters of ConvertFromContent.
type ConvertFromContentParams struct {
	Content      string    `json:"content"`
	InputFormat  string    `json:"inputFormat"`
	OutputFormat string    `json:"outputFormat"`
	OutputFile   string    `json:"outputFile,omitempty"`
	Options      OptionBag `json:"options,omitempty"`
}

// Validate checks required fields.
func (p ConvertFromContentParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Content, validation.Required),
		validation.Field(&p.InputFormat, validation.Required),
		validation.Field(&p.OutputFormat, validation.Required),
	)
}

// DetectFormatParams are the parameters of DetectFormat.
type DetectFormatParams struct {
	InputFile string `json:"inputFile"`
}

// Validate checks required fields.
func (p DetectFormatParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.InputFile, validation.Required),
	)
}

// Sources is a list of source references. Callers may send a JSON array
// or a string holding one.
type Sources []string

// UnmarshalJSON accepts ["a","b"] and "[\"a\",\"b\"]".
func (s *Sources) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		data = []byte(encoded)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("inputFiles must be a JSON array of strings")
	}
	*s = list
	return nil
}

// OptionBag is the caller's loosely typed option map. Callers may send an
// object or a string holding one.
type OptionBag map[string]any

// UnmarshalJSON accepts {"toc":true} and "{\"toc\":true}".
func (o *OptionBag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		if strings.TrimSpace(encoded) == "" {
			*o = nil
			return nil
		}
		data = []byte(encoded)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("options must be a JSON object")
	}
	*o = m
	return nil
}

// Bool accepts JSON booleans and the strings "true"/"false".
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case bool:
		*b = Bool(x)
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return fmt.Errorf("%q is not a boolean", x)
		}
		*b = Bool(parsed)
	case nil:
		*b = false
	default:
		return fmt.Errorf("%s is not a boolean", data)
	}
	return nil
}
