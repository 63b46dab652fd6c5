package convert

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrImageRequired       = errors.New("convert: image data uri required")
	ErrOutputPathRequired  = errors.New("convert: stl output path required")
	ErrInvalidDataURI      = errors.New("convert: invalid data uri")
	ErrUnsupportedEncoding = errors.New("convert: unsupported data uri encoding")
)

// Options control the conversion pipeline. Invalid values are substituted
// with defaults rather than rejected.
type Options struct {
	Size     int
	Scale    float64
	Border   int
	Negative bool
	Smooth   bool
	Base     bool
}

func DefaultOptions() Options {
	return Options{
		Size:   256,
		Scale:  0.1,
		Border: 100,
		Smooth: true,
	}
}

// Job is one resolved conversion request: decoded image bytes, the output
// path, and the effective options.
type Job struct {
	ImageData  []byte
	OutputPath string
	Options    Options
}

// Wire shape of one request payload. Pointers distinguish absent optional
// fields from explicit zero values.
type rawRequest struct {
	Image    string   `json:"image"`
	STL      string   `json:"stl"`
	Scale    *float64 `json:"scale"`
	Size     *int     `json:"size"`
	Border   *int     `json:"border"`
	Negative *bool    `json:"negative"`
	Smooth   *bool    `json:"smooth"`
	Base     *bool    `json:"base"`
}

// ParseRequest decodes one JSON request payload into a Job, filling absent
// or invalid optional fields with defaults. The image and stl fields are
// required.
func ParseRequest(payload []byte) (Job, error) {
	var raw rawRequest
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Job{}, fmt.Errorf("convert: parse request: %w", err)
	}
	if strings.TrimSpace(raw.STL) == "" {
		return Job{}, ErrOutputPathRequired
	}
	if strings.TrimSpace(raw.Image) == "" {
		return Job{}, ErrImageRequired
	}

	opts := DefaultOptions()
	if raw.Scale != nil && *raw.Scale > 0 {
		opts.Scale = *raw.Scale
	}
	if raw.Size != nil && *raw.Size > 0 {
		opts.Size = *raw.Size
	}
	if raw.Border != nil && *raw.Border >= 0 {
		opts.Border = *raw.Border
	}
	if raw.Negative != nil {
		opts.Negative = *raw.Negative
	}
	if raw.Smooth != nil {
		opts.Smooth = *raw.Smooth
	}
	if raw.Base != nil {
		opts.Base = *raw.Base
	}

	_, data, err := DecodeDataURI(raw.Image)
	if err != nil {
		return Job{}, err
	}

	return Job{
		ImageData:  data,
		OutputPath: strings.TrimSpace(raw.STL),
		Options:    opts,
	}, nil
}

// DecodeDataURI splits a data URI into its parameter list and decoded
// payload. Only base64 data is supported; the parameters before the comma
// are returned verbatim for the caller to inspect.
func DecodeDataURI(uri string) ([]string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, nil, ErrInvalidDataURI
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, nil, ErrInvalidDataURI
	}

	var params []string
	for _, p := range strings.Split(meta, ";") {
		if p != "" {
			params = append(params, p)
		}
	}
	if len(params) == 0 || params[len(params)-1] != "base64" {
		return nil, nil, ErrUnsupportedEncoding
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	return params, decoded, nil
}
