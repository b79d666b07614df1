package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/media"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
	"github.com/spf13/cobra"
)

var signsCmd = &cobra.Command{
	Use:   "signs",
	Short: "Manage the reference sign corpus",
}

var signsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reference signs",
	Args:  cobra.NoArgs,
	RunE:  runSignsList,
}

var signsAddCmd = &cobra.Command{
	Use:   "add <name> <video>",
	Short: "Add a reference sign",
	Long: `Describe the video with the reference prompt, store the sign and its
video, and rebuild the description cache.`,
	Args: cobra.ExactArgs(2),
	RunE: runSignsAdd,
}

var signsReplaceCmd = &cobra.Command{
	Use:   "replace <name> <video>",
	Short: "Replace the video of a sign, creating it when missing",
	Long: `Store a new video for the sign. The description is generated from the
video unless --description is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runSignsReplace,
}

var signsDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a reference sign and its video",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignsDelete,
}

var signsRebuildCmd = &cobra.Command{
	Use:   "rebuild-cache",
	Short: "Rewrite the description cache from the reference store",
	Args:  cobra.NoArgs,
	RunE:  runSignsRebuild,
}

func init() {
	rootCmd.AddCommand(signsCmd)
	signsCmd.AddCommand(signsListCmd)
	signsCmd.AddCommand(signsAddCmd)
	signsCmd.AddCommand(signsReplaceCmd)
	signsCmd.AddCommand(signsDeleteCmd)
	signsCmd.AddCommand(signsRebuildCmd)

	signsReplaceCmd.Flags().String("description", "", "Use this description instead of generating one")
}

// storeOrchestrator builds an orchestrator for commands that only touch the
// store. Describing with it is not possible.
func storeOrchestrator(cfg *config.Config) (*pipeline.Orchestrator, database.SignWriter, error) {
	signs, err := connectDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	orchestrator := pipeline.New(nil, nil, signs, media.NewStore(cfg.Storage.AvatarsDir()), cfg.Storage.CachePath)
	return orchestrator, signs, nil
}

// describingOrchestrator builds an orchestrator that describes new signs
// with the user prompt, matching POST /signs.
func describingOrchestrator(cfg *config.Config) (*pipeline.Orchestrator, *ai.Client, error) {
	client, err := newModelClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	signs, err := connectDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	return newOrchestrator(cfg, client, signs), client, nil
}

func runSignsList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	_, signs, err := storeOrchestrator(cfg)
	if err != nil {
		return err
	}

	list, err := signs.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list signs: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No signs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVIDEO\tDESCRIBED\tCREATED")
	fmt.Fprintln(w, "--\t----\t-----\t---------\t-------")

	described := 0
	for i := range list {
		s := &list[i]
		mark := "no"
		if s.HasDescription() {
			mark = "yes"
			described++
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.VideoPath, mark, s.CreatedAt.Format("2006-01-02 15:04"))
	}

	w.Flush()

	fmt.Printf("\nTotal: %d signs (%d with description)\n", len(list), described)
	return nil
}

func runSignsAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	orchestrator, client, err := describingOrchestrator(cfg)
	if err != nil {
		return err
	}

	video, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading video: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Describing %s...\n", args[1])
	sign, err := orchestrator.AddSign(ctx, args[0], video, filepath.Base(args[1]))
	if err != nil {
		if errors.Is(err, database.ErrSignExists) {
			return fmt.Errorf("sign %q already exists", args[0])
		}
		return fmt.Errorf("adding sign: %w", err)
	}

	fmt.Printf("Added sign %q (ID %d, video %s)\n", sign.Name, sign.ID, sign.VideoPath)
	fmt.Printf("Description:\n%s\n", sign.Description)
	printUsage(client)
	return nil
}

func runSignsReplace(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	description := mustGetString(cmd, "description")

	var orchestrator *pipeline.Orchestrator
	var client *ai.Client
	var err error
	if description != "" {
		orchestrator, _, err = storeOrchestrator(cfg)
	} else {
		orchestrator, client, err = describingOrchestrator(cfg)
	}
	if err != nil {
		return err
	}

	video, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading video: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	sign, created, err := orchestrator.ReplaceSign(ctx, args[0], video, filepath.Base(args[1]), description)
	if err != nil {
		return fmt.Errorf("replacing sign: %w", err)
	}

	action := "Updated"
	if created {
		action = "Created"
	}
	fmt.Printf("%s sign %q (ID %d, video %s)\n", action, sign.Name, sign.ID, sign.VideoPath)
	if client != nil {
		printUsage(client)
	}
	return nil
}

func runSignsDelete(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	orchestrator, signs, err := storeOrchestrator(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		sign, lookupErr := signs.GetByName(ctx, args[0])
		if lookupErr != nil {
			return fmt.Errorf("looking up sign: %w", lookupErr)
		}
		if sign == nil {
			return fmt.Errorf("sign %q not found", args[0])
		}
		id = sign.ID
	}

	sign, err := orchestrator.DeleteSign(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("sign %s not found", args[0])
		}
		return fmt.Errorf("deleting sign: %w", err)
	}

	fmt.Printf("Deleted sign %q (ID %d)\n", sign.Name, sign.ID)
	return nil
}

func runSignsRebuild(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	orchestrator, _, err := storeOrchestrator(cfg)
	if err != nil {
		return err
	}

	n, err := orchestrator.RebuildCache(context.Background())
	if err != nil {
		return fmt.Errorf("rebuilding cache: %w", err)
	}

	fmt.Printf("Wrote %d descriptions to %s\n", n, cfg.Storage.CachePath)
	return nil
}
