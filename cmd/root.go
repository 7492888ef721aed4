package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mj1618/swipegen/internal/config"
	"github.com/mj1618/swipegen/internal/observability"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/mj1618/swipegen/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "swipegen",
	Short: "Explore Android app UIs and record interaction data",
	Long: `swipegen drives an Android device through adb, asks a visual region detector
for clickable and slidable areas, executes taps and swipes on them and records
whether each one changed the screen. Exploration is bounded to depth 2: the
app's root screen and one screen below each interaction that changed it.`,
	SilenceUsage: true,
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	observability.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)

	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./swipegen.yaml)")
	flags.String("format", "yaml", "Output format: yaml, json")
	flags.Bool("pretty", false, "Pretty-print JSON output")
	flags.String("serial", "", "Device serial (default: the only attached device)")
	flags.String("adb", "", "Path to the adb executable")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	_ = viper.BindPFlag("device.serial", flags.Lookup("serial"))
	_ = viper.BindPFlag("device.adb_path", flags.Lookup("adb"))
	_ = viper.BindPFlag("logger.level", flags.Lookup("log-level"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(viper.GetViper(), cfgFile); err != nil {
			return err
		}

		// Use the root persistent flag directly to avoid conflicts with
		// subcommand local flags.
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		if pretty, _ := rootCmd.PersistentFlags().GetBool("pretty"); pretty {
			output.PrettyOutput = true
		}

		cfg, err := loadConfig()
		if err != nil {
			observability.InitializeLogger(config.NewDefaultConfig().Logger)
			return err
		}
		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting swipegen",
			zap.String("version", version.Version),
			zap.String("command", cmd.Name()))
		return nil
	}
}

// initializeConfig reads the config file and SWIPEGEN_* environment variables
// into v. An empty file looks for ./swipegen.yaml, which may be absent.
func initializeConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("swipegen")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SWIPEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
