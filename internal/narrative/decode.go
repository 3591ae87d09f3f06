package narrative

import (
	"encoding/json"
	"fmt"
)

// requestEnvelope carries the fields shared by every generation request
// on the wire.
type requestEnvelope struct {
	NarrativeType string         `json:"narrative_type"`
	Method        Method         `json:"generation_method"`
	Context       map[string]any `json:"context"`
}

// DecodeRequest decodes a flat JSON request body into the typed request
// for the given narrative type, carrying generation_method and context
// over. An empty typ falls back to the body's narrative_type field.
func DecodeRequest(data []byte, typ Type) (Request, error) {
	var env requestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if typ == "" {
		typ = Type(env.NarrativeType)
	}
	opts := RequestOptions{Method: env.Method, Context: env.Context}

	switch typ {
	case TypeStatisticalTest:
		var req StatisticalTestRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("invalid statistical test request: %w", err)
		}
		req.Opts = opts
		return &req, nil
	case TypeDataSummary:
		var req DataSummaryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("invalid data summary request: %w", err)
		}
		req.Opts = opts
		return &req, nil
	case TypeVisualization:
		var req VisualizationRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("invalid visualization request: %w", err)
		}
		req.Opts = opts
		return &req, nil
	}
	return nil, fmt.Errorf("unsupported narrative type %q", typ)
}
