package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"

	"datasnap/internal/config"
	"datasnap/internal/database"
	"datasnap/internal/dataset"
	"datasnap/internal/llm"
	"datasnap/internal/narrative"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full analyze run.
type Result struct {
	Filename    string
	Steps       []StepResult
	DatasetID   int64
	NarrativeID int64
	Narrative   *narrative.Narrative
}

// Pipeline orchestrates the 4-step CSV analysis pipeline.
type Pipeline struct {
	cfg       *config.Config
	db        *database.DB
	assembler *narrative.Assembler
}

// New creates a new pipeline. The LLM provider is optional; without
// one every generation method falls back to templates.
func New(cfg *config.Config, db *database.DB) (*Pipeline, error) {
	gen := cfg.Generation
	provider := llm.CreateProvider(
		gen.Provider,
		gen.Model,
		gen.OllamaURL,
		gen.OpenAIModel,
		gen.APIKeyEnv,
	)

	assembler, err := narrative.NewAssembler(narrative.DefaultRegistry(), provider)
	if err != nil {
		return nil, fmt.Errorf("building narrative assembler: %w", err)
	}

	return &Pipeline{
		cfg:       cfg,
		db:        db,
		assembler: assembler,
	}, nil
}

// Run executes the full 4-step pipeline on one CSV file.
func (p *Pipeline) Run(ctx context.Context, csvPath string, method narrative.Method) *Result {
	r := &Result{Filename: csvPath}

	// Step 1: Load
	profile, step := p.runLoad(csvPath)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 2: Profile
	step = p.runProfile(profile)
	r.Steps = append(r.Steps, step)

	// Step 3: Generate
	n, step := p.runGenerate(ctx, profile, method)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Narrative = n

	// Step 4: Store
	step = p.runStore(profile, n, r)
	r.Steps = append(r.Steps, step)

	return r
}

// DryRun shows what would be done without generating or storing.
func (p *Pipeline) DryRun(csvPath string) *Result {
	r := &Result{Filename: csvPath}

	if info, err := os.Stat(csvPath); err != nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Load",
			Summary: fmt.Sprintf("[dry-run] cannot read %s", csvPath),
			Err:     err,
		})
		return r
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Load",
			Summary: fmt.Sprintf("[dry-run] Would load %s (%d bytes)", csvPath, info.Size()),
		})
	}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Generate",
		Summary: "[dry-run] Would profile the file and generate a data summary narrative",
	})

	stats, _ := p.db.GetStats()
	if stats != nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Store",
			Summary: fmt.Sprintf("[dry-run] Database currently holds %d narratives, %d datasets", stats.TotalNarratives, stats.TotalDatasets),
		})
	}

	return r
}

func (p *Pipeline) runLoad(csvPath string) (*dataset.Profile, StepResult) {
	log.Println("Step 1/4: Loading CSV...")
	profile, err := dataset.Load(csvPath)
	if err != nil {
		return nil, StepResult{Name: "Load", Err: err}
	}
	return profile, StepResult{
		Name:    "Load",
		Summary: fmt.Sprintf("Loaded %d rows, %d columns from %s", profile.TotalRows, profile.TotalColumns, profile.Filename),
	}
}

func (p *Pipeline) runProfile(profile *dataset.Profile) StepResult {
	log.Println("Step 2/4: Profiling columns...")

	numeric, categorical, datetime := 0, 0, 0
	for _, typ := range profile.ColumnTypes {
		switch typ {
		case dataset.ColumnNumeric:
			numeric++
		case dataset.ColumnDatetime:
			datetime++
		default:
			categorical++
		}
	}

	missing := 0
	for _, n := range profile.MissingValues {
		missing += n
	}

	return StepResult{
		Name: "Profile",
		Summary: fmt.Sprintf("%d numeric, %d categorical, %d datetime columns; %d missing values; quality %.2f",
			numeric, categorical, datetime, missing, profile.QualityScore),
	}
}

func (p *Pipeline) runGenerate(ctx context.Context, profile *dataset.Profile, method narrative.Method) (*narrative.Narrative, StepResult) {
	log.Println("Step 3/4: Generating narrative...")

	req := profile.SummaryRequest()
	req.Opts.Method = method

	n, err := p.assembler.Generate(ctx, req)
	if err != nil {
		return nil, StepResult{Name: "Generate", Err: err}
	}
	return n, StepResult{
		Name: "Generate",
		Summary: fmt.Sprintf("Generated %q via %s (%d insights, %d sections)",
			n.Title, n.Metadata.GenerationMethod, len(n.KeyInsights), len(n.Sections)),
	}
}

func (p *Pipeline) runStore(profile *dataset.Profile, n *narrative.Narrative, r *Result) StepResult {
	log.Println("Step 4/4: Storing results...")

	score := profile.QualityScore
	datasetID, err := p.db.InsertDataset(profile.Filename, profile.TotalRows, profile.TotalColumns, profile.Columns, &score)
	if err != nil {
		return StepResult{Name: "Store", Err: fmt.Errorf("storing dataset: %w", err)}
	}
	r.DatasetID = datasetID

	rec := database.RecordFromNarrative(n, &datasetID, nil, nil)
	narrativeID, err := p.db.InsertNarrative(rec)
	if err != nil {
		return StepResult{Name: "Store", Err: fmt.Errorf("storing narrative: %w", err)}
	}
	r.NarrativeID = narrativeID

	return StepResult{
		Name:    "Store",
		Summary: fmt.Sprintf("Stored dataset %d and narrative %d", datasetID, narrativeID),
	}
}
