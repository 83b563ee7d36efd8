package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pdfrag/internal/adapter/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the vector store currently holds",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	collections, err := st.Collections()
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		fmt.Println("Store is empty.")
		return nil
	}

	fmt.Printf("Store: %s\n", cfg.Store.Path)
	for _, name := range collections {
		count, err := st.Count(name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-24s %d entries\n", name, count)
	}

	return nil
}
