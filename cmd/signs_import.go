package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/kozaktomas/sign-vision/internal/descriptions"
	"github.com/kozaktomas/sign-vision/internal/media"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var signsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the description cache into the reference store",
	Long: `Store every entry of the description cache whose <name>.mp4 exists in the
avatars directory. Existing signs get the cached description. Entries
without a video are skipped and listed at the end.`,
	Args: cobra.NoArgs,
	RunE: runSignsImport,
}

var signsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Describe every .mp4 in a directory and write the description cache",
	Long: `Describe each reference video with the reference prompt and write the
results as the description cache, named after the file stems. Videos that
fail are reported and left out. No database is needed.`,
	Args: cobra.NoArgs,
	RunE: runSignsGenerate,
}

func init() {
	signsCmd.AddCommand(signsImportCmd)
	signsCmd.AddCommand(signsGenerateCmd)

	signsGenerateCmd.Flags().String("dir", "", "Directory with reference videos (default: the avatars directory)")
	signsGenerateCmd.Flags().String("output", "", "Cache file to write (default: SIGN_DESCRIPTIONS_PATH)")
	signsGenerateCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of parallel describe requests")
}

func newProgressBar(count int, description, its string) *progressbar.ProgressBar {
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(its),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func runSignsImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	orchestrator, _, err := storeOrchestrator(cfg)
	if err != nil {
		return err
	}

	entries, err := descriptions.Load(cfg.Storage.CachePath)
	if err != nil {
		return fmt.Errorf("reading description cache: %w", err)
	}
	if len(entries) == 0 {
		fmt.Printf("No descriptions in %s.\n", cfg.Storage.CachePath)
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	bar := newProgressBar(len(entries), "Importing signs", "signs")
	report, err := orchestrator.ImportSigns(ctx, func(pipeline.ImportItem) {
		bar.Add(1)
	})
	bar.Finish()
	fmt.Println()

	if report != nil {
		for _, item := range report.Items {
			switch item.Status {
			case pipeline.ImportMissingVideo:
				fmt.Printf("  skipped %s: no %s%s in %s\n", item.Name, item.Name, constants.AvatarExt, cfg.Storage.AvatarsDir())
			case pipeline.ImportFailed:
				fmt.Printf("  failed %s: %v\n", item.Name, item.Err)
			}
		}
		fmt.Printf("\nImported %d signs (%d created, %d updated, %d skipped)\n",
			report.Imported(), report.Created, report.Updated, report.Skipped)
	}
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

func runSignsGenerate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}

	dir := mustGetString(cmd, "dir")
	if dir == "" {
		dir = cfg.Storage.AvatarsDir()
	}
	output := mustGetString(cmd, "output")
	if output == "" {
		output = cfg.Storage.CachePath
	}
	concurrency := mustGetInt(cmd, "concurrency")

	store := media.NewStore(dir)
	files, err := store.List(constants.AvatarExt)
	if err != nil {
		return fmt.Errorf("listing videos: %w", err)
	}
	if len(files) == 0 {
		fmt.Printf("No %s videos in %s.\n", constants.AvatarExt, dir)
		return nil
	}

	fmt.Printf("Describing %d videos from %s with %d workers\n", len(files), dir, concurrency)

	ctx, cancel := signalContext()
	defer cancel()

	bar := newProgressBar(len(files), "Describing videos", "videos")
	entries, failures, err := pipeline.GenerateDescriptions(ctx,
		ai.NewReferenceDescriber(client, cfg.OpenRouter.DescribeTimeout),
		store,
		pipeline.BatchOptions{
			Concurrency: concurrency,
			OnProgress: func(pipeline.ProgressInfo) {
				bar.Add(1)
			},
		})
	bar.Finish()
	fmt.Println()

	for _, f := range failures {
		fmt.Printf("  failed %s: %v\n", f.Name, f.Err)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Cancelled, cache not written.")
		}
		printUsage(client)
		return err
	}

	unlock, err := descriptions.Lock(context.Background(), output)
	if err != nil {
		return err
	}
	defer unlock()

	if err := descriptions.Write(output, entries); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	fmt.Printf("\nWrote %d descriptions to %s (%d failed)\n", len(entries), output, len(failures))
	printUsage(client)
	return nil
}
