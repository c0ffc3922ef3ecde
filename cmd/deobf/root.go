package main

import (
	"os"

	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"deobf/internal/config"
)

var (
	cfgFile string
	// AppVersion is set at link time.
	AppVersion = "dev"
)

var rootCmd = &cobra.Command{
	Use:           "deobf",
	Short:         "Recover names in an obfuscated program by fingerprinting known features",
	Version:       AppVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		color.NoColor = !viper.GetBool("color")
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	log.SetHandler(clihandler.Default)

	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/deobf/config.yaml)")
	pf.BoolP("verbose", "V", false, "verbose output")
	pf.Bool("color", false, "colorize output")
	pf.StringP("package", "p", "", "package prefix for recovered class names, e.g. com/example/game")
	pf.String("version-constraint", "", "refuse programs whose version does not satisfy this, e.g. \">= 1.0\"")
	bindFlags(pf, "verbose", "color", "package", "version-constraint")
	viper.BindEnv("color", "CLICOLOR")

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := config.Init(viper.GetViper(), cfgFile); err != nil {
		log.WithError(err).Fatal("failed to read config")
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debugf("using config file %s", used)
	}
}

// bindFlags binds the named flags of fs to the viper keys of the same name.
func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if f := fs.Lookup(name); f != nil {
			viper.BindPFlag(name, f)
		}
	}
}

// settings returns the resolved run settings.
func settings() (*config.Config, error) {
	return config.Load(viper.GetViper())
}
