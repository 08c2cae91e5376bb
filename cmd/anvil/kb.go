package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/anvil/internal/knowledge"
)

var (
	kbLanguage string
	kbTitle    string
	kbLimit    int
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base",
	Long: `Manage the snippet store that feeds prompt assembly.

Snippets are small pieces of reference material (code fragments,
conventions, prior solutions) retrieved by relevance to a job's task
and folded into prompts under the snippet budget.

Examples:
  anvil kb add ratelimit.go --title "token bucket"
  anvil kb add --title "error style" "wrap errors with %w and lowercase messages"
  anvil kb search "rate limiting"
  anvil kb list
  anvil kb rm sn-abc123`,
}

var kbAddCmd = &cobra.Command{
	Use:   "add <file-or-text>",
	Short: "Add a snippet from a file or inline text",
	Args:  cobra.ExactArgs(1),
	RunE:  runKBAdd,
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search snippets by relevance",
	Args:  cobra.ExactArgs(1),
	RunE:  runKBSearch,
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snippets",
	Args:  cobra.NoArgs,
	RunE:  runKBList,
}

var kbRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a snippet",
	Args:  cobra.ExactArgs(1),
	RunE:  runKBRm,
}

func init() {
	kbAddCmd.Flags().StringVar(&kbTitle, "title", "", "Snippet title (defaults to the file name)")
	kbAddCmd.Flags().StringVarP(&kbLanguage, "language", "l", "", "Snippet language tag")
	kbSearchCmd.Flags().IntVar(&kbLimit, "limit", 10, "Maximum results")
	kbListCmd.Flags().IntVar(&kbLimit, "limit", 20, "Maximum results")

	kbCmd.AddCommand(kbAddCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbRmCmd)
}

func openKB() (*knowledge.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return openKnowledgeStore(cfg)
}

func runKBAdd(cmd *cobra.Command, args []string) error {
	store, err := openKB()
	if err != nil {
		return err
	}
	defer store.Close()

	snippet := knowledge.Snippet{
		Title:    kbTitle,
		Content:  args[0],
		Language: kbLanguage,
		Source:   "manual",
	}
	// A readable file argument stores the file's content.
	if data, err := os.ReadFile(args[0]); err == nil {
		snippet.Content = string(data)
		snippet.Source = args[0]
		if snippet.Title == "" {
			snippet.Title = filepath.Base(args[0])
		}
	}
	if snippet.Title == "" {
		return fmt.Errorf("--title is required for inline snippets")
	}

	id, err := store.Add(context.Background(), snippet)
	if err != nil {
		return fmt.Errorf("add snippet: %w", err)
	}
	fmt.Printf("added %s (%s)\n", id, snippet.Title)
	return nil
}

func runKBSearch(cmd *cobra.Command, args []string) error {
	store, err := openKB()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Search(context.Background(), args[0], kbLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("no matching snippets")
		return nil
	}
	for _, s := range results {
		fmt.Printf("%-14s %6.2f  %s\n", s.ID, s.Rank, s.Title)
	}
	return nil
}

func runKBList(cmd *cobra.Command, args []string) error {
	store, err := openKB()
	if err != nil {
		return err
	}
	defer store.Close()

	snippets, err := store.List(context.Background(), kbLimit)
	if err != nil {
		return fmt.Errorf("list snippets: %w", err)
	}
	if len(snippets) == 0 {
		fmt.Println("knowledge base is empty; add snippets with 'anvil kb add'")
		return nil
	}
	for _, s := range snippets {
		lang := s.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Printf("%-14s %-8s %s\n", s.ID, lang, s.Title)
	}
	return nil
}

func runKBRm(cmd *cobra.Command, args []string) error {
	store, err := openKB()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete snippet: %w", err)
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}
