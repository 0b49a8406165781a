/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gofvm",
	Short: "Linear solvers for finite volume matrices in LDU form",
	Long: `
Solves finite volume model problems stored in lower/diagonal/upper form with
Gauss-Seidel smoothing and Krylov solvers, optionally decomposed over several
ranks coupled by processor interfaces.

gofvm solve -I input.yaml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gofvm.yaml)")
	rootCmd.PersistentFlags().StringP("logLevel", "l", "info", "log threshold: trace, debug, info, warn or error")
	_ = viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("logLevel"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		// Search config in home directory with name ".gofvm" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".gofvm")
	}
	viper.SetEnvPrefix("GOFVM")
	viper.AutomaticEnv() // read in environment variables that match

	readErr := viper.ReadInConfig()
	if err := setLogLevel(viper.GetString("logLevel")); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if readErr == nil {
		jww.INFO.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func setLogLevel(name string) error {
	levels := map[string]jww.Threshold{
		"trace": jww.LevelTrace,
		"debug": jww.LevelDebug,
		"info":  jww.LevelInfo,
		"warn":  jww.LevelWarn,
		"error": jww.LevelError,
	}
	level, ok := levels[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown log level %q", name)
	}
	jww.SetStdoutThreshold(level)
	return nil
}
