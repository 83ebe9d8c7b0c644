package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/docassist/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DocAssist configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		w := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys {
			v, _ := configValue(c, k)
			fmt.Fprintf(w, "%s: %s\n", k, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := *currentConfig()
		switch key {
		case "mode":
			switch strings.ToLower(val) {
			case cfgpkg.ModeLocal, cfgpkg.ModeRemote:
				c.Mode = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid mode: %s (use local or remote)", val)
			}
		case "backend_url":
			c.BackendURL = val
		case "log_level":
			c.LogLevel = strings.ToLower(val)
		default:
			dst := intField(&c, key)
			if dst == nil {
				return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
			}
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			*dst = i
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&c, cfgFile); err != nil {
			return err
		}
		cfg = &c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func intField(c *cfgpkg.Global, key string) *int {
	switch key {
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "retry_base_delay_ms":
		return &c.RetryBaseDelayMs
	case "retry_max_delay_ms":
		return &c.RetryMaxDelayMs
	case "sample_size":
		return &c.SampleSize
	case "cache_size":
		return &c.CacheSize
	case "max_upload_mb":
		return &c.MaxUploadMB
	case "progress_interval_ms":
		return &c.ProgressIntervalMs
	}
	return nil
}

func configValue(c *cfgpkg.Global, key string) (string, bool) {
	switch key {
	case "mode":
		return c.Mode, true
	case "backend_url":
		return c.BackendURL, true
	case "log_level":
		return c.LogLevel, true
	}
	if p := intField(c, key); p != nil {
		return strconv.Itoa(*p), true
	}
	return "", false
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
