package narrative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"datasnap/internal/llm"
)

// maxKeyInsights caps the insights carried on a single narrative.
const maxKeyInsights = 5

// Assembler turns requests into narratives. It is stateless apart from the
// immutable registry, so one assembler can serve concurrent callers.
type Assembler struct {
	registry *Registry
	renderer *Renderer
	provider llm.Provider
}

// NewAssembler compiles the registry's templates and wires an optional LLM
// provider for the cloud/local/hybrid generation tiers. A nil provider
// restricts generation to the template tier.
func NewAssembler(registry *Registry, provider llm.Provider) (*Assembler, error) {
	renderer, err := NewRenderer(registry)
	if err != nil {
		return nil, fmt.Errorf("compiling templates: %w", err)
	}
	return &Assembler{registry: registry, renderer: renderer, provider: provider}, nil
}

// Registry returns the assembler's template registry.
func (a *Assembler) Registry() *Registry { return a.registry }

// Generate produces a narrative for one request. Failures come back as a
// structured *Error; the assembler never logs and swallows.
func (a *Assembler) Generate(ctx context.Context, req Request) (*Narrative, error) {
	n, err := a.generate(ctx, req, nil)
	if err != nil {
		return nil, AsError(err)
	}
	return n, nil
}

// generate runs the full assembly for one request, stamping the wall-clock
// duration on the result. globalContext supplies extra render context keys
// without mutating the request.
func (a *Assembler) generate(ctx context.Context, req Request, globalContext map[string]any) (*Narrative, error) {
	start := time.Now()

	var n *Narrative
	var err error
	switch req.Options().Method {
	case MethodCloudAI, MethodLocalAI, MethodHybrid:
		n, err = a.generateWithProvider(ctx, req, req.Options().Method)
		if err != nil {
			// Template generation is the fallback tier beneath every
			// AI method.
			n, err = a.generateTemplate(req, globalContext)
		}
	default:
		n, err = a.generateTemplate(req, globalContext)
	}
	if err != nil {
		return nil, err
	}

	n.Metadata.GenerationTimeMs = time.Since(start).Milliseconds()
	return n, nil
}

func (a *Assembler) generateTemplate(req Request, globalContext map[string]any) (*Narrative, error) {
	tpl, err := a.registry.Find(req)
	if err != nil {
		return nil, err
	}

	renderCtx := buildContext(req, globalContext)
	content, err := a.renderer.Render(tpl, renderCtx)
	if err != nil {
		return nil, err
	}

	insights := ExtractInsights(req)

	return &Narrative{
		NarrativeType:   req.NarrativeType(),
		Title:           synthesizeTitle(req),
		Summary:         synthesizeSummary(req),
		Content:         content,
		Sections:        splitSections(content, insights),
		KeyInsights:     topInsights(insights, maxKeyInsights),
		Recommendations: synthesizeRecommendations(req),
		Metadata: Metadata{
			GeneratedAt:      time.Now().UTC(),
			GenerationMethod: MethodTemplate,
			TemplateVersion:  tpl.Version,
			SourceDataHash:   hashRequest(req),
		},
	}, nil
}

const providerPrompt = `You are writing a plain-language narrative explaining a data analysis result to a non-statistician.

Analysis facts:
%s

Write a concise narrative in markdown. Use bold section headers (a line containing only **Header**) for structure, covering the key findings, an interpretation, and recommendations. Be specific about the numbers. Avoid hype.

Respond with ONLY this JSON:
{
    "title": "A short title for the analysis",
    "narrative": "The full markdown narrative"
}`

// generateWithProvider asks the configured LLM for the narrative text and
// assembles everything else with the same deterministic rules as the
// template tier.
func (a *Assembler) generateWithProvider(ctx context.Context, req Request, method Method) (*Narrative, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	facts, err := json.MarshalIndent(req.contextFields(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding request facts: %w", err)
	}

	responseText, err := a.provider.Generate(ctx, fmt.Sprintf(providerPrompt, facts), 1024)
	if err != nil {
		return nil, fmt.Errorf("provider generation: %w", err)
	}

	title := synthesizeTitle(req)
	content := strings.TrimSpace(responseText)
	if parsed := llm.ParseJSONResponse(responseText); parsed != nil {
		if t, ok := parsed["title"].(string); ok && t != "" {
			title = t
		}
		if body, ok := parsed["narrative"].(string); ok && body != "" {
			content = body
		}
	}
	if content == "" {
		return nil, fmt.Errorf("provider returned empty narrative")
	}

	insights := ExtractInsights(req)

	return &Narrative{
		NarrativeType:   req.NarrativeType(),
		Title:           title,
		Summary:         synthesizeSummary(req),
		Content:         content,
		Sections:        splitSections(content, insights),
		KeyInsights:     topInsights(insights, maxKeyInsights),
		Recommendations: synthesizeRecommendations(req),
		Metadata: Metadata{
			GeneratedAt:      time.Now().UTC(),
			GenerationMethod: method,
			SourceDataHash:   hashRequest(req),
		},
	}, nil
}

// buildContext flattens the request into the render context and adds the
// derived significance helpers. Global context keys never shadow request
// fields.
func buildContext(req Request, globalContext map[string]any) map[string]any {
	ctx := req.contextFields()

	for k, v := range globalContext {
		if _, exists := ctx[k]; !exists {
			ctx[k] = v
		}
	}
	for k, v := range req.Options().Context {
		if _, exists := ctx[k]; !exists {
			ctx[k] = v
		}
	}

	if t, ok := req.(*StatisticalTestRequest); ok {
		ctx["is_significant"] = t.PValue < DefaultAlpha
		switch {
		case t.PValue < 0.01:
			ctx["significance_level"] = "high"
		case t.PValue < DefaultAlpha:
			ctx["significance_level"] = "medium"
		default:
			ctx["significance_level"] = "low"
		}
		if t.EffectSize != nil {
			ctx["effect_size_interpretation"] = InterpretEffectSize(*t.EffectSize, t.TestName)
		}
	}

	return ctx
}

func synthesizeTitle(req Request) string {
	switch r := req.(type) {
	case *StatisticalTestRequest:
		return fmt.Sprintf("%s Analysis Results", r.TestName)
	case *DataSummaryRequest:
		return "Dataset Overview and Quality Assessment"
	case *VisualizationRequest:
		return fmt.Sprintf("%s Chart Analysis", titleFirst(r.ChartType))
	default:
		return "Data Analysis Results"
	}
}

func synthesizeSummary(req Request) string {
	switch r := req.(type) {
	case *StatisticalTestRequest:
		if r.PValue < DefaultAlpha {
			return fmt.Sprintf("Statistically significant results found (p %s)", FormatPValue(r.PValue))
		}
		return "No statistically significant difference detected"
	case *DataSummaryRequest:
		quality := "good"
		if r.DataQualityScore != nil && *r.DataQualityScore > 0.9 {
			quality = "excellent"
		}
		return fmt.Sprintf("Dataset with %s rows shows %s data quality", commaInt(r.TotalRows), quality)
	default:
		return "Analysis completed successfully"
	}
}

func synthesizeRecommendations(req Request) []string {
	var recs []string

	switch r := req.(type) {
	case *StatisticalTestRequest:
		if r.PValue < DefaultAlpha {
			recs = append(recs,
				"Validate results with additional data or replication studies",
				"Consider practical significance alongside statistical significance",
			)
			if r.EffectSize != nil && *r.EffectSize > 0.5 {
				recs = append(recs, "The large effect size suggests practical importance for decision-making")
			}
		} else {
			recs = append(recs,
				"Consider collecting more data to increase statistical power",
				"Review study design and measurement methods",
				"Examine whether observed trends have practical significance despite lack of statistical significance",
			)
		}

	case *DataSummaryRequest:
		if sumInts(r.MissingValues) > 0 {
			recs = append(recs, "Address missing values through appropriate imputation or removal strategies")
		}
		if sumInts(r.OutliersDetected) > 0 {
			recs = append(recs, "Investigate outliers to determine if they represent valuable insights or data errors")
		}
		recs = append(recs, "Proceed with statistical analysis and visualization based on research objectives")
	}

	return recs
}

// topInsights returns at most limit insights in extraction order.
func topInsights(insights []Insight, limit int) []Insight {
	if len(insights) <= limit {
		return insights
	}
	return insights[:limit]
}

// hashRequest produces a stable content hash of the full request payload
// for upstream caching and change detection. Struct field order gives a
// canonical encoding; the digest is truncated to 128 bits.
func hashRequest(req Request) string {
	payload, err := json.Marshal(struct {
		Type    Type    `json:"type"`
		Request Request `json:"request"`
	}{req.NarrativeType(), req})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}
