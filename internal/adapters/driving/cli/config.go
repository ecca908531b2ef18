package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the narrata configuration",
	Long: `View the effective configuration or write it out for editing.

Use "config show" to print the configuration after defaults are applied
and "config init" to write config.toml into the config directory.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the configuration file",
	Long: `Writes the effective configuration to config.toml in the config
directory, creating the file with the defaults when none exists.`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := file.Load(flagConfigDir)
	if err != nil {
		return err
	}

	cmd.Println("[tts]")
	cmd.Printf("  endpoints: %s\n", strings.Join(cfg.TTS.Endpoints, ", "))
	cmd.Printf("  speaker: %s\n", cfg.TTS.Speaker)
	cmd.Printf("  language: %s\n", cfg.TTS.Language)
	if cfg.TTS.Instruct != "" {
		cmd.Printf("  instruct: %s\n", cfg.TTS.Instruct)
	}
	cmd.Printf("  requests_per_second: %g\n", cfg.TTS.RequestsPerSecond)
	cmd.Printf("  burst: %d\n", cfg.TTS.Burst)
	cmd.Println()

	cmd.Println("[convert]")
	cmd.Printf("  chunk_size: %d\n", cfg.Convert.ChunkSize)
	cmd.Printf("  chunk_gap: %g\n", cfg.Convert.ChunkGap)
	cmd.Printf("  max_retries: %d\n", cfg.Convert.MaxRetries)
	cmd.Printf("  min_chapter_chars: %d\n", cfg.Convert.MinChapterChars)
	cmd.Printf("  bitrate: %s\n", cfg.Convert.Bitrate)
	cmd.Printf("  keep_wav: %t\n", cfg.Convert.KeepWAV)
	if cfg.Convert.WorkDir != "" {
		cmd.Printf("  work_dir: %s\n", cfg.Convert.WorkDir)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cfg, err := file.Load(flagConfigDir)
	if err != nil {
		return err
	}
	if err := file.Save(flagConfigDir, cfg); err != nil {
		return err
	}

	dir, err := file.ConfigDir(flagConfigDir)
	if err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", filepath.Join(dir, "config.toml"))
	return nil
}
