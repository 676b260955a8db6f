package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// annotationNeedsSNID marks commands that run the classifier.
const annotationNeedsSNID = "snidpipe/needs-snid"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "snidpipe",
	Short: "Supernova type, subtype, redshift and age from SNID",
	Long:  longDescription,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initUIAndBanner(cmd)
		if cmd.Annotations[annotationNeedsSNID] == "" {
			return nil
		}
		_, err := classifier.CheckInstalled(snidCommand())
		return err
	},

	// When invoked without a subcommand, show help (with banner) instead of
	// printing a plain usage output.
	RunE: func(cmd *cobra.Command, args []string) error {
		initUIAndBanner(cmd)
		return cmd.Help()
	},
}

var (
	cfgFile string
	noColor bool
	snidCmd string
	version string
)

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// GetRootCmd returns the root command for use with fang
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.snidpipe.yaml or ./config/defaults.yaml)")
	rootCmd.PersistentFlags().StringVar(&snidCmd, "snid", "", "SNID executable name or path (default \"snid\")")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log prefixes")
	viper.BindPFlag("snid.command", rootCmd.PersistentFlags().Lookup("snid"))

	// Ensure `--help` (and help subcommands) show the banner consistently.
	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		initUIAndBanner(cmd)
		defaultHelp(cmd, args)
	})

	rootCmd.AddCommand(classifyCmd, batchCmd, reportCmd, lnwCmd, checkCmd)
}

func initConfig() {
	// Environment variables such as SNIDPIPE_SNID_COMMAND or
	// SNIDPIPE_CLASSIFY_RLAP_STRICT override config file values.
	viper.SetEnvPrefix("SNIDPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		cobra.CheckErr(viper.ReadInConfig())
		printConfigUsed()
		return
	}

	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath("./config")
	viper.SetConfigType("yaml")

	// Try .snidpipe first, then defaults.yaml.
	viper.SetConfigName(".snidpipe")
	err = viper.ReadInConfig()

	notFound := &viper.ConfigFileNotFoundError{}
	if err != nil && errors.As(err, notFound) {
		viper.SetConfigName("defaults")
		err = viper.ReadInConfig()
	}
	switch {
	case err != nil && !errors.As(err, notFound):
		cobra.CheckErr(err)
	case err == nil:
		printConfigUsed()
	}
}

func printConfigUsed() {
	configMsg := ui.Dim.Render("Using config file: ") + ui.Secondary.Render(viper.ConfigFileUsed())
	fmt.Fprintln(os.Stderr, configMsg)
}

// snidCommand returns the configured SNID executable.
func snidCommand() string {
	if c := strings.TrimSpace(viper.GetString("snid.command")); c != "" {
		return c
	}
	return classifier.DefaultCommand
}

const longDescription = "Runs the SNID template-matching classifier in stages to determine a supernova's type, subtype, redshift and age, and reads SNID reports and template archives."

func initUIAndBanner(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	ui.Init(noColor)
	cmd.Root().Long = ui.RenderGradientBanner(ui.BannerASCII) + "\n" + longDescription
}
