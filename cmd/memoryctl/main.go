package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag   string
	ownerFlag string
	rootCmd   = &cobra.Command{
		Use:   "memoryctl",
		Short: "CLI client for the Remindly memory server REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Memory server base URL")
	rootCmd.PersistentFlags().StringVarP(&ownerFlag, "owner", "o", "", "Owner ID (required)")

	// ingest subcommand
	ingestCmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Capture a file as a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comment, _ := cmd.Flags().GetString("comment")
			if ownerFlag == "" {
				return fmt.Errorf("--owner required")
			}
			return runIngest(apiFlag, ownerFlag, args[0], comment, os.Stdout)
		},
	}
	ingestCmd.Flags().StringP("comment", "c", "", "Comment stored with the memory")
	rootCmd.AddCommand(ingestCmd)

	// search subcommand
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search memories by similarity",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			topk, _ := cmd.Flags().GetInt("topk")
			if ownerFlag == "" {
				return fmt.Errorf("--owner required")
			}
			return runSearch(apiFlag, ownerFlag, query, topk, os.Stdout)
		},
	}
	searchCmd.Flags().StringP("query", "q", "", "Search query text (required)")
	searchCmd.Flags().IntP("topk", "k", 5, "Number of top results to return")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)

	// chat subcommand
	chatCmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask a question grounded in your memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ownerFlag == "" {
				return fmt.Errorf("--owner required")
			}
			return runChat(apiFlag, ownerFlag, args[0], os.Stdout)
		},
	}
	rootCmd.AddCommand(chatCmd)

	// list subcommand
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List captured memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ownerFlag == "" {
				return fmt.Errorf("--owner required")
			}
			return runList(apiFlag, ownerFlag, os.Stdout)
		},
	}
	rootCmd.AddCommand(listCmd)

	// model-config subcommand
	modelConfigCmd := &cobra.Command{
		Use:   "model-config",
		Short: "Show or update the owner's model configuration",
	}
	modelConfigGetCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the owner's model configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ownerFlag == "" {
				return fmt.Errorf("--owner required")
			}
			return runGetModelConfig(apiFlag, ownerFlag, os.Stdout)
		},
	}
	modelConfigSetCmd := &cobra.Command{
		Use:   "set",
		Short: "Update the owner's model configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, _ := cmd.Flags().GetString("provider")
			chatModel, _ := cmd.Flags().GetString("chat-model")
			embedModel, _ := cmd.Flags().GetString("embed-model")
			credentialRef, _ := cmd.Flags().GetString("credential-ref")
			if ownerFlag == "" {
				return fmt.Errorf("--owner required")
			}
			return runSetModelConfig(apiFlag, ownerFlag, provider, chatModel, embedModel, credentialRef, os.Stdout)
		},
	}
	modelConfigSetCmd.Flags().StringP("provider", "p", "", "Model provider: openai, gemini, anthropic or ollama (required)")
	modelConfigSetCmd.Flags().String("chat-model", "", "Chat model name override")
	modelConfigSetCmd.Flags().String("embed-model", "", "Embedding model name override")
	modelConfigSetCmd.Flags().String("credential-ref", "", "Reference to a server-side credential")
	_ = modelConfigSetCmd.MarkFlagRequired("provider")
	modelConfigCmd.AddCommand(modelConfigGetCmd, modelConfigSetCmd)
	rootCmd.AddCommand(modelConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
