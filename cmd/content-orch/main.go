package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "content-orch",
		Short: "Content Pipeline - quality-gated social media publishing",
		Long: `Content Pipeline drafts social media posts, scores them against a brand
profile, regenerates weak candidates until they pass the quality gate,
and routes the result to a human reviewer before anything is published.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
