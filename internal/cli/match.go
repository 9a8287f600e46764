// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"

	"github.com/noldarim/navlink/internal/matcher"
	"github.com/noldarim/navlink/internal/route"
	"github.com/spf13/cobra"
)

type matchOptions struct {
	domain string
	output string
}

type matchResult struct {
	URL      string            `json:"url"`
	Routable bool              `json:"routable"`
	Internal bool              `json:"internal"`
	Route    *route.Route      `json:"route,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Param    string            `json:"param,omitempty"`
	Query    map[string]string `json:"query,omitempty"`
}

func newMatchCommand(root *rootOptions) *cobra.Command {
	opts := &matchOptions{}

	cmd := &cobra.Command{
		Use:   "match <url>",
		Short: "Match a URL against the route table",
		Example: `  navlink match https://school.example.com/courses/42/assignments/5
  navlink match --domain school.example.com --output json /courses/42/grades`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := opts.domain
			if domain == "" {
				domain = root.sessionDomain()
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, runMatch(matcher.New(nil), args[0], domain))
		},
	}
	cmd.Flags().StringVar(&opts.domain, "domain", "", "Signed-in domain (defaults to session.domain)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "yaml", "Output format: yaml or json")
	return cmd
}

func runMatch(m *matcher.Matcher, rawURL, domain string) matchResult {
	res := matchResult{URL: rawURL}

	r, err := m.Match(rawURL, domain)
	if err != nil {
		res.Reason = string(matcher.ReasonNoMatch)
		var unroutable *matcher.Unroutable
		if errors.As(err, &unroutable) {
			res.Reason = string(unroutable.Reason)
			res.Param = unroutable.Param
			res.Query = unroutable.Query
		}
		return res
	}

	res.Routable = true
	res.Route = &r
	res.Internal = r.Category() != route.CategoryExternal && r.Kind() != route.KindUnsupportedFeature
	return res
}
