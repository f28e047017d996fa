/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cli implements the anvil command line.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tomoncle/anvil"
	"github.com/tomoncle/anvil/config"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/utils"
)

var (
	configDirs []string
	logLevel   string
	logFormat  string
	logFile    string
	settings   *viper.Viper
	logger     = utils.NewLogger("ANVIL")
)

var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Web service infrastructure host",
	Long: `Anvil hosts a web service on SQL Server or MySQL with users, roles,
bearer tokens and health checks.

Settings are read from appsettings.{yaml,json,toml}, .env files and
ANVIL_<SECTION>_<KEY> environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := configureLogging(); err != nil {
			return err
		}
		if cmd.Name() == "version" {
			return nil
		}
		v, err := config.Load(configDirs...)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		settings = v
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configDirs, "config", "c", nil, "directories searched for appsettings (default ., ./configs, ~/.anvil)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default $CONSOLE_LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stdout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func configureLogging() error {
	if logLevel != "" {
		utils.ConfigureLogLevel(logLevel)
	}
	if logFile != "" {
		f, err := config.AppFs.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		utils.ConfigureOutput(f)
	}
	if logFormat != "" {
		utils.ConfigureConsoleLogFormat(logFormat)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), color.RedString("Error: %v", err))
	}
	return err
}

// build registers the infrastructure from the loaded settings.
func build() (*container.Container, error) {
	c := container.New()
	if err := anvil.AddInfrastructure(c, settings); err != nil {
		c.Shutdown()
		return nil, err
	}
	return c, nil
}
