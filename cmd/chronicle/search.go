package chronicle

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chronicle-kb/chronicle/pkg/config"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a ranked retrieval query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	kb, err := buildClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize chronicle: %w", err)
	}
	defer kb.Close()

	result, err := kb.Retrieve(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
