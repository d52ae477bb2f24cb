package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hedwig/internal/infra/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration and encrypt secrets",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		return writeConfig(cmd.OutOrStdout(), cfg)
	},
}

var configEncryptCmd = &cobra.Command{
	Use:   "encrypt <value>",
	Short: "Encrypt a secret with HEDWIG_CONFIG_KEY for use as an enc: value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase := os.Getenv("HEDWIG_CONFIG_KEY")
		if passphrase == "" {
			return errors.New("HEDWIG_CONFIG_KEY is not set")
		}
		enc, err := config.EncryptValue(args[0], passphrase)
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "enc:"+enc)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEncryptCmd)
}

// writeConfig prints cfg as YAML. The API key is never printed.
func writeConfig(w io.Writer, cfg *config.Config) error {
	redacted := *cfg
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = "<redacted>"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&redacted); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
