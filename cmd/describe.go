package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <video>",
	Short: "Describe the movements in a video",
	Long: `Send a video to the vision model and print the movement description.
With --reference the prompt used for building the reference corpus is used
instead of the one for user recordings.`,
	Args: cobra.ExactArgs(1),
	RunE: runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().Bool("reference", false, "Use the reference corpus prompt")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}

	video, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading video: %w", err)
	}

	var describer *ai.Describer
	if mustGetBool(cmd, "reference") {
		describer = ai.NewReferenceDescriber(client, cfg.OpenRouter.DescribeTimeout)
	} else {
		describer = ai.NewDescriber(client, cfg.OpenRouter.DescribeTimeout)
	}

	ctx, cancel := signalContext()
	defer cancel()

	description, err := describer.Describe(ctx, video, filepath.Base(args[0]))
	if err != nil {
		return fmt.Errorf("describing video: %w", err)
	}

	fmt.Println(description)
	printUsage(client)
	return nil
}
