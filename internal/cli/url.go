// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/noldarim/navlink/internal/matcher"
	"github.com/noldarim/navlink/internal/route"
	"github.com/spf13/cobra"
)

type urlOptions struct {
	course int64
	group  int64
	params map[string]string
	query  map[string]string
	domain string
}

func newURLCommand(root *rootOptions) *cobra.Command {
	opts := &urlOptions{}

	cmd := &cobra.Command{
		Use:   "url <kind>",
		Short: "Build the canonical URL for a route kind",
		Example: `  navlink url grades --course 42
  navlink url assignment_details --course 42 --param assignmentId=5
  navlink url file --param fileId=7 --query download_frd=1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := route.ParseKind(args[0])
			if err != nil {
				return err
			}
			ctx, err := opts.context()
			if err != nil {
				return err
			}
			domain := opts.domain
			if domain == "" {
				domain = root.sessionDomain()
			}

			u, err := matcher.New(nil).URLFor(kind, ctx, opts.params, opts.query, domain)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u)
			return err
		},
	}
	cmd.Flags().Int64Var(&opts.course, "course", 0, "Course id for course-scoped kinds")
	cmd.Flags().Int64Var(&opts.group, "group", 0, "Group id for group-scoped kinds")
	cmd.Flags().StringToStringVar(&opts.params, "param", nil, "Path parameter as name=value (repeatable)")
	cmd.Flags().StringToStringVar(&opts.query, "query", nil, "Query parameter as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.domain, "domain", "", "Domain for an absolute URL (defaults to session.domain)")
	cmd.MarkFlagsMutuallyExclusive("course", "group")
	return cmd
}

func (o *urlOptions) context() (route.Context, error) {
	switch {
	case o.course < 0 || o.group < 0:
		return nil, errors.New("ids must be positive")
	case o.course > 0:
		return route.CourseRef{CourseID: o.course}, nil
	case o.group > 0:
		return route.GroupRef{GroupID: o.group}, nil
	}
	return nil, nil
}
