package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reubingeorge/undetected-chromedriver-go/internal/config"
	"github.com/reubingeorge/undetected-chromedriver-go/internal/observability"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "undetect",
	Short: "Anti-detection browser automation",
	Long: `undetect drives a Chrome session hardened against bot detection:
stealth script injection, periodic fingerprint randomization, human-like
motion and timing, and automatic challenge resolution.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		config.SetDefaults(v)

		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("reading config %s: %w", cfgFile, err)
			}
		}

		v.SetEnvPrefix("UNDETECT")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		if err := config.Load(v); err != nil {
			return err
		}
		observability.InitializeLogger(config.Get().Logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().Bool("browser.headless", false, "run the browser headless")
	rootCmd.PersistentFlags().String("driver.behavior_profile", "normal", "behavior profile: fast, normal, careful")
	rootCmd.PersistentFlags().Bool("driver.human_behavior", true, "simulate human motion and timing")
	rootCmd.PersistentFlags().Bool("driver.randomize_fingerprint", true, "rotate the browser fingerprint periodically")
	rootCmd.PersistentFlags().String("logger.level", "info", "log level")
}
