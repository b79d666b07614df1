package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sign-vision",
	Short: "Recognize sign language gestures in videos using a vision model",
	Long: `Sign Vision describes the hand and body movements in a short video with a
multimodal model, matches the description against a corpus of reference
signs and returns the closest sign together with its demonstration video.

It runs as a web API for the mobile client and offers commands for managing
the reference corpus.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
