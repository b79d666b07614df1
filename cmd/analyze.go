package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <video>",
	Short: "Recognize the sign in a video",
	Long: `Run the full recognition pipeline on a video: describe the movements,
match the description against the description cache and resolve the
demonstration video of the matched sign.

The reference store is consulted for demonstration videos when DATABASE_URL
is set, otherwise only the avatars directory is searched.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}

	var signs database.SignWriter
	if cfg.Database.URL != "" {
		if signs, err = connectDatabase(cfg); err != nil {
			return err
		}
	}

	video, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading video: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := newOrchestrator(cfg, client, signs).Analyze(ctx, video, filepath.Base(args[0]))
	if err != nil {
		return fmt.Errorf("analyzing video: %w", err)
	}

	fmt.Printf("Description:\n%s\n\n", result.Description)
	fmt.Printf("Result:\n%s\n\n", result.Result)
	if result.MatchedSign != "" {
		fmt.Printf("Matched sign: %s\n", result.MatchedSign)
	} else {
		fmt.Println("Matched sign: none")
	}
	if result.AvatarFile != "" {
		fmt.Printf("Avatar: %s\n", filepath.Join(cfg.Storage.AvatarsDir(), result.AvatarFile))
	}

	printUsage(client)
	return nil
}
