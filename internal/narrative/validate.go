package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// option keys accepted on every raw field map alongside template fields.
var requestOptionFields = map[string]bool{
	"generation_method": true,
	"context":           true,
}

// RenderWithTemplate validates a raw field map against the named template's
// field contract, builds the typed request, and generates a narrative with
// it. This is the diagnostic entry point behind the template test endpoint.
func (a *Assembler) RenderWithTemplate(ctx context.Context, templateID string, rawFields map[string]any) (*Narrative, error) {
	tpl := a.registry.Get(templateID)
	if tpl == nil {
		return nil, AsError(&TemplateNotFoundError{TemplateID: templateID})
	}

	req, err := buildRequest(tpl, rawFields)
	if err != nil {
		return nil, AsError(err)
	}
	return a.Generate(ctx, req)
}

// buildRequest checks the raw field map against the template contract and
// decodes it into the request variant the template narrates.
func buildRequest(tpl *Template, rawFields map[string]any) (Request, error) {
	accepted := make(map[string]bool, len(tpl.RequiredFields)+len(tpl.OptionalFields))
	for _, f := range tpl.RequiredFields {
		accepted[f] = true
	}
	for _, f := range tpl.OptionalFields {
		accepted[f] = true
	}

	var missing, unknown []string
	for _, f := range tpl.RequiredFields {
		if v, ok := rawFields[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	for f := range rawFields {
		if !accepted[f] && !requestOptionFields[f] {
			unknown = append(unknown, f)
		}
	}
	sort.Strings(unknown)
	if len(missing) > 0 || len(unknown) > 0 {
		return nil, &ValidationError{TemplateID: tpl.ID, MissingFields: missing, UnknownFields: unknown}
	}

	payload, err := json.Marshal(rawFields)
	if err != nil {
		return nil, fmt.Errorf("encoding fields: %w", err)
	}

	switch tpl.NarrativeType {
	case TypeStatisticalTest:
		var req StatisticalTestRequest
		if err := decodeRequest(payload, &req, tpl.ID); err != nil {
			return nil, err
		}
		decodeOptions(rawFields, &req.Opts)
		return &req, nil
	case TypeDataSummary:
		var req DataSummaryRequest
		if err := decodeRequest(payload, &req, tpl.ID); err != nil {
			return nil, err
		}
		decodeOptions(rawFields, &req.Opts)
		return &req, nil
	default:
		return nil, &ValidationError{TemplateID: tpl.ID}
	}
}

func decodeRequest(payload []byte, dst any, templateID string) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return &ValidationError{TemplateID: templateID}
	}
	return nil
}

func decodeOptions(rawFields map[string]any, opts *RequestOptions) {
	if m, ok := rawFields["generation_method"].(string); ok {
		opts.Method = Method(m)
	}
	if c, ok := rawFields["context"].(map[string]any); ok {
		opts.Context = c
	}
}
