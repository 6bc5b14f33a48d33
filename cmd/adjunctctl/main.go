// Package main 提供运维命令行工具：向量回填和签发协调人令牌。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "adjunctctl",
	Short: "Maintenance tool for the adjunct candidate search service",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		config.Conf = cfg
		log.Init(cfg.Log.Level, "console", "")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "Path to config.yaml")
}

func main() {
	defer log.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
