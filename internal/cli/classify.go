// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/noldarim/navlink/internal/route"
	"github.com/noldarim/navlink/internal/signal"
	"github.com/spf13/cobra"
)

type classifyResult struct {
	Action      string       `json:"action"`
	Route       *route.Route `json:"route,omitempty"`
	URL         string       `json:"url,omitempty"`
	DomainHint  string       `json:"domain_hint,omitempty"`
	Message     string       `json:"message,omitempty"`
	MessageType string       `json:"message_type,omitempty"`
}

func newClassifyCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "classify <signal.json|->",
		Short: "Classify a navigation signal",
		Long:  "Reads a JSON signal from a file, or from stdin when the argument is -, and\nprints the action the navigator would take for it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read signal: %w", err)
			}

			sig, err := signal.Parse(data)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, describeAction(signal.Classify(sig)))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")
	return cmd
}

func describeAction(a signal.Action) classifyResult {
	res := classifyResult{Action: signal.Name(a)}
	switch a := a.(type) {
	case signal.ApplyRoute:
		res.Route = &a.Route
	case signal.ApplyURL:
		res.URL = a.URL
		res.DomainHint = a.DomainHint
	case signal.ShowMessage:
		res.Message = a.Text
		res.MessageType = a.Type
	}
	return res
}
