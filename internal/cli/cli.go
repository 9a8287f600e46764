// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the navlink command line: offline access to the
// route matcher and signal classifier without starting a navigator.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/noldarim/navlink/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "navlink"
	appVersion = "0.1.0-alpha"
)

type rootOptions struct {
	configPath string
	cfg        *config.AppConfig
}

// NewRootCommand builds the navlink command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Deep-link routing toolkit",
		Long:          "navlink matches URLs to in-app routes, classifies navigation signals and\nbuilds canonical URLs for routes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")

	root.AddCommand(
		newMatchCommand(opts),
		newClassifyCommand(),
		newURLCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI application
func Execute() error {
	return NewRootCommand().Execute()
}

// sessionDomain is the configured domain, used when --domain is not given.
func (o *rootOptions) sessionDomain() string {
	if o.cfg == nil {
		return ""
	}
	return o.cfg.Session.Domain
}

// writeOutput renders v as indented JSON or as YAML. Values are passed
// through JSON first so types with custom JSON encodings keep their shape.
func writeOutput(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	switch format {
	case "json":
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "":
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
			return err
		},
	}
}
