package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"datasnap/internal/config"
	"datasnap/internal/database"
	"datasnap/internal/llm"
	"datasnap/internal/narrative"
	"datasnap/internal/pipeline"
	"datasnap/internal/server"
)

var version = "dev"

var (
	cfg        *config.Config
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "datasnap",
	Short: "DataSnap turns statistical results into plain-language narratives",
	Long: `DataSnap generates structured, human-readable narratives from
statistical test results, dataset profiles and visualizations. Upload a
CSV for a full analysis, or feed it test results directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init and version must work without a config file.
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			fmt.Fprintf(os.Stderr, "Using config: %s\n", path)
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the user config directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.ConfigDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := os.WriteFile(path, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the datasnap version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("datasnap %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}
		fmt.Printf("Narratives:      %d\n", stats.TotalNarratives)
		fmt.Printf("  Favorites:     %d\n", stats.FavoriteNarratives)
		fmt.Printf("  Archived:      %d\n", stats.ArchivedNarratives)
		fmt.Printf("  Types in use:  %d\n", stats.NarrativeTypes)
		fmt.Printf("Datasets:        %d\n", stats.TotalDatasets)
		return nil
	},
}

var (
	analyzeDryRun bool
	analyzeMethod string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Profile a CSV file and generate a data summary narrative",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		p, err := pipeline.New(cfg, db)
		if err != nil {
			return err
		}

		var result *pipeline.Result
		if analyzeDryRun {
			result = p.DryRun(args[0])
		} else {
			result = p.Run(cmd.Context(), args[0], narrative.Method(analyzeMethod))
		}

		failed := false
		for i, step := range result.Steps {
			status := "ok"
			if step.Err != nil {
				status = "FAILED: " + step.Err.Error()
				failed = true
			}
			fmt.Printf("Step %d/%d: %s - %s", i+1, len(result.Steps), step.Name, status)
			if step.Summary != "" {
				fmt.Printf(" (%s)", step.Summary)
			}
			fmt.Println()
		}
		if failed {
			return fmt.Errorf("analysis of %s did not complete", result.Filename)
		}
		if result.Narrative != nil {
			fmt.Println()
			printNarrative(result.Narrative)
		}
		if result.NarrativeID != 0 {
			fmt.Printf("\nSaved narrative %d (dataset %d)\n", result.NarrativeID, result.DatasetID)
		}
		return nil
	},
}

var (
	generateFile       string
	generateMethod     string
	generateJSON       bool
	generateSave       bool
	generateTestName   string
	generateStatistic  float64
	generatePValue     float64
	generateDF         float64
	generateEffectSize float64
	generateSampleSize int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single narrative from a statistical test result",
	Long: `Generate a narrative either from a JSON request file (--file) or from
statistical test flags (--test-name, --statistic, --p-value, ...).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildGenerateRequest(cmd)
		if err != nil {
			return err
		}

		assembler, err := narrative.NewAssembler(narrative.DefaultRegistry(), providerFor(req.Options().Method))
		if err != nil {
			return err
		}
		n, err := assembler.Generate(cmd.Context(), req)
		if err != nil {
			return err
		}

		if generateJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(n); err != nil {
				return err
			}
		} else {
			printNarrative(n)
		}

		if generateSave {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			id, err := db.InsertNarrative(database.RecordFromNarrative(n, nil, nil, nil))
			if err != nil {
				return fmt.Errorf("saving narrative: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Saved narrative %d\n", id)
		}
		return nil
	},
}

// buildGenerateRequest prefers --file; otherwise it assembles a
// statistical test request from flags.
func buildGenerateRequest(cmd *cobra.Command) (narrative.Request, error) {
	method := narrative.Method(generateMethod)
	if method == "" {
		method = narrative.Method(cfg.Narrative.DefaultMethod)
	}

	if generateFile != "" {
		data, err := os.ReadFile(generateFile)
		if err != nil {
			return nil, fmt.Errorf("reading request file: %w", err)
		}
		req, err := narrative.DecodeRequest(data, "")
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("method") {
			opts := req.Options()
			opts.Method = method
			switch r := req.(type) {
			case *narrative.StatisticalTestRequest:
				r.Opts = opts
			case *narrative.DataSummaryRequest:
				r.Opts = opts
			case *narrative.VisualizationRequest:
				r.Opts = opts
			}
		}
		return req, nil
	}

	if generateTestName == "" {
		return nil, fmt.Errorf("either --file or --test-name is required")
	}
	req := &narrative.StatisticalTestRequest{
		TestName:      generateTestName,
		TestStatistic: generateStatistic,
		PValue:        generatePValue,
		SampleSize:    generateSampleSize,
		Opts:          narrative.RequestOptions{Method: method},
	}
	if cmd.Flags().Changed("df") {
		req.DegreesOfFreedom = &generateDF
	}
	if cmd.Flags().Changed("effect-size") {
		req.EffectSize = &generateEffectSize
	}
	return req, nil
}

var (
	batchCombine bool
	batchJSON    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <requests.json>",
	Short: "Generate narratives for a batch of requests from a JSON file",
	Long: `The file holds the same shape as the batch API endpoint:
{"requests": [...], "global_context": {...}, "combine_insights": true}.
A bare JSON array of requests is accepted too.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading batch file: %w", err)
		}

		var body struct {
			Requests        []json.RawMessage `json:"requests"`
			GlobalContext   map[string]any    `json:"global_context"`
			CombineInsights bool              `json:"combine_insights"`
		}
		if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
			if err := json.Unmarshal(data, &body.Requests); err != nil {
				return fmt.Errorf("invalid batch file: %w", err)
			}
		} else if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("invalid batch file: %w", err)
		}
		if len(body.Requests) == 0 {
			return fmt.Errorf("batch file contains no requests")
		}
		if cmd.Flags().Changed("combine-insights") {
			body.CombineInsights = batchCombine
		}

		requests := make([]narrative.Request, 0, len(body.Requests))
		method := narrative.MethodTemplate
		for i, raw := range body.Requests {
			req, err := narrative.DecodeRequest(raw, "")
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			if m := req.Options().Method; m != "" && m != narrative.MethodTemplate {
				method = m
			}
			requests = append(requests, req)
		}

		assembler, err := narrative.NewAssembler(narrative.DefaultRegistry(), providerFor(method))
		if err != nil {
			return err
		}
		result, err := assembler.GenerateBatch(cmd.Context(), requests, body.CombineInsights, body.GlobalContext)
		if err != nil {
			return err
		}

		if batchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		for i, n := range result.Narratives {
			if i > 0 {
				fmt.Println(strings.Repeat("-", 60))
			}
			printNarrative(n)
		}
		if result.ExecutiveSummary != "" {
			fmt.Println(strings.Repeat("=", 60))
			fmt.Printf("Executive summary: %s\n", result.ExecutiveSummary)
		}
		for _, ins := range result.CombinedInsights {
			fmt.Printf("  [%s] %s: %s\n", ins.Priority, ins.Title, ins.Description)
		}
		fmt.Printf("\nGenerated %d narratives in %dms\n", len(result.Narratives), result.TotalGenerationTimeMs)
		return nil
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the registered narrative templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, tpl := range narrative.DefaultRegistry().List() {
			fmt.Printf("%-14s %-18s v%s  priority %d\n", tpl.ID, tpl.NarrativeType, tpl.Version, tpl.Priority)
			if len(tpl.TestTypes) > 0 {
				fmt.Printf("               tests: %s\n", strings.Join(tpl.TestTypes, ", "))
			}
			fmt.Printf("               required: %s\n", strings.Join(tpl.RequiredFields, ", "))
		}
		return nil
	},
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if !cmd.Flags().Changed("port") && cfg.Server.Port != 0 {
			port = cfg.Server.Port
		}
		gen := cfg.Generation
		provider := llm.CreateProvider(gen.Provider, gen.Model, gen.OllamaURL, gen.OpenAIModel, gen.APIKeyEnv)
		return server.Serve(db, provider, port)
	},
}

// providerFor builds an LLM provider only when the method needs one.
// Template generation never touches the network.
func providerFor(method narrative.Method) llm.Provider {
	if method == "" || method == narrative.MethodTemplate {
		return nil
	}
	gen := cfg.Generation
	return llm.CreateProvider(gen.Provider, gen.Model, gen.OllamaURL, gen.OpenAIModel, gen.APIKeyEnv)
}

func printNarrative(n *narrative.Narrative) {
	fmt.Printf("# %s\n\n", n.Title)
	if n.Summary != "" {
		fmt.Printf("%s\n\n", n.Summary)
	}
	fmt.Println(n.Content)
	if len(n.KeyInsights) > 0 {
		fmt.Println("\nKey insights:")
		for _, ins := range n.KeyInsights {
			fmt.Printf("  [%s] %s: %s\n", ins.Priority, ins.Title, ins.Description)
		}
	}
	if len(n.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range n.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "datasnap.db"))
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "validate the file and config without generating")
	analyzeCmd.Flags().StringVar(&analyzeMethod, "method", "", "generation method (template, cloud_ai, local_ai, hybrid)")

	generateCmd.Flags().StringVarP(&generateFile, "file", "f", "", "JSON request file")
	generateCmd.Flags().StringVar(&generateMethod, "method", "", "generation method (template, cloud_ai, local_ai, hybrid)")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "print the full narrative as JSON")
	generateCmd.Flags().BoolVar(&generateSave, "save", false, "save the narrative to the database")
	generateCmd.Flags().StringVar(&generateTestName, "test-name", "", "statistical test name (e.g. \"Independent T-Test\")")
	generateCmd.Flags().Float64Var(&generateStatistic, "statistic", 0, "test statistic value")
	generateCmd.Flags().Float64Var(&generatePValue, "p-value", 1, "p-value of the test")
	generateCmd.Flags().Float64Var(&generateDF, "df", 0, "degrees of freedom")
	generateCmd.Flags().Float64Var(&generateEffectSize, "effect-size", 0, "effect size (Cohen's d, r, eta squared)")
	generateCmd.Flags().IntVar(&generateSampleSize, "sample-size", 0, "sample size")

	batchCmd.Flags().BoolVar(&batchCombine, "combine-insights", false, "merge insights across the batch")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print the full batch result as JSON")

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "port to listen on")

	rootCmd.AddCommand(initCmd, versionCmd, statusCmd, analyzeCmd, generateCmd, batchCmd, templatesCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
