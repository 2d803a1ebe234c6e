package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/render"
	"github.com/matzehuels/siteplan/pkg/solution"
)

// FormatJSON renders the instance and solution as a JSON document.
const FormatJSON = "json"

// ValidateFormat checks that a render format is valid.
func ValidateFormat(format string) error {
	if format == FormatJSON || render.ValidFormats[format] {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: dot, svg, png, pdf, json)", format)
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// Render draws inst and sol in every requested format. sol may be nil to draw
// the bare instance.
func (r *Runner) Render(ctx context.Context, inst *instance.Instance, sol *solution.Solution, formats []string, opts render.Options) (map[string][]byte, error) {
	if len(formats) == 0 {
		formats = []string{render.FormatSVG}
	}
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}

	dot := render.ToDOT(inst, sol, opts)
	artifacts := make(map[string][]byte, len(formats))

	for _, format := range formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = json.MarshalIndent(struct {
				Instance *instance.Instance `json:"instance"`
				Solution *solution.Solution `json:"solution,omitempty"`
			}{inst, sol}, "", "  ")
		default:
			data, err = render.Render(ctx, dot, format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	r.Logger.Debug("rendered map", "instance", inst.Name, "formats", formats)
	return artifacts, nil
}
