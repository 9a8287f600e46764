// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/noldarim/navlink/internal/logger"
	"github.com/noldarim/navlink/internal/route"
	"github.com/rs/zerolog"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetMatcherLogger()
		log = &l
	})
	return log
}

const (
	// contextParam is the placeholder for the course or group id in scoped
	// patterns. It is renamed to courseId or groupId after matching.
	contextParam = "contextId"
	scopeGroup   = "scope"
)

// numericParams must parse as int64 or the URL is unroutable.
var numericParams = map[string]struct{}{
	contextParam:     {},
	"courseId":       {},
	"groupId":        {},
	"fileId":         {},
	"userId":         {},
	"assignmentId":   {},
	"quizId":         {},
	"moduleId":       {},
	"moduleItemId":   {},
	"conversationId": {},
	"eventId":        {},
	"messageId":      {},
	"externalId":     {},
	"submissionId":   {},
}

// Pattern is one row of the route table.
//
// Path segments are literals, ":name" parameters, "**" for any number of
// segments, "prefix*" for a segment prefix followed by anything, or a final
// lone "*" for any remainder. Scoped patterns are prefixed with
// /courses or /groups and may use ":contextId".
type Pattern struct {
	Path          string
	Kind          route.Kind
	Category      route.Category
	Style         route.Style
	Scoped        bool
	UserContext   bool
	RequiredQuery string
	// GroupKind replaces Kind when a scoped pattern matches under /groups.
	GroupKind route.Kind
}

type entry struct {
	Pattern
	re     *regexp.Regexp
	params []string
}

// Table is a compiled, ordered route table. It is never modified after
// NewTable returns and is safe for concurrent use.
type Table struct {
	entries []entry
}

// NewTable compiles patterns in order. The first matching pattern wins.
func NewTable(patterns []Pattern) (*Table, error) {
	t := &Table{entries: make([]entry, 0, len(patterns))}
	for i, p := range patterns {
		e, err := compile(p)
		if err != nil {
			return nil, fmt.Errorf("route pattern %d (%s): %w", i, p.Path, err)
		}
		t.entries = append(t.entries, e)
	}
	getLog().Debug().Int("patterns", len(t.entries)).Msg("Compiled route table")
	return t, nil
}

// MustNewTable is NewTable for static tables.
func MustNewTable(patterns []Pattern) *Table {
	t, err := NewTable(patterns)
	if err != nil {
		panic(err)
	}
	return t
}

// Patterns returns a copy of the table rows.
func (t *Table) Patterns() []Pattern {
	out := make([]Pattern, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Pattern
	}
	return out
}

// Len returns the number of patterns.
func (t *Table) Len() int {
	return len(t.entries)
}

func compile(p Pattern) (entry, error) {
	if !p.Kind.Valid() {
		return entry{}, fmt.Errorf("unknown kind %q", p.Kind)
	}
	if p.Category == "" {
		p.Category = route.CategoryDefault
	}
	if p.Style == "" {
		p.Style = route.StyleFullscreen
	}

	var b strings.Builder
	var params []string

	b.WriteString("^")
	if p.Scoped {
		b.WriteString("/(courses|groups)")
		params = append(params, scopeGroup)
	}

	segs := splitPath(p.Path)
	for i, seg := range segs {
		last := i == len(segs)-1
		switch {
		case seg == "**":
			b.WriteString("(?:/[^/]+)*")
		case seg == "*":
			if !last {
				return entry{}, fmt.Errorf("'*' must be the last segment")
			}
			b.WriteString("(?:/.*)?")
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			if name == "" {
				return entry{}, fmt.Errorf("empty parameter name")
			}
			if name == contextParam && !p.Scoped {
				return entry{}, fmt.Errorf(":%s requires a scoped pattern", contextParam)
			}
			b.WriteString("/([^/]+)")
			params = append(params, name)
		case strings.HasSuffix(seg, "*"):
			if !last {
				return entry{}, fmt.Errorf("prefix wildcard must be the last segment")
			}
			b.WriteString("/" + regexp.QuoteMeta(strings.TrimSuffix(seg, "*")) + "[^/]*(?:/.*)?")
		default:
			b.WriteString("/" + regexp.QuoteMeta(seg))
		}
	}
	b.WriteString("/?$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return entry{}, err
	}
	return entry{Pattern: p, re: re, params: params}, nil
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// DefaultTable returns the route table of the learning client.
func DefaultTable() *Table {
	return MustNewTable(defaultPatterns())
}

func defaultPatterns() []Pattern {
	const moduleItem = "module_item_id"
	file := route.CategoryFile

	return []Pattern{
		{Path: "/", Kind: route.KindDashboard},
		{Path: "/conversations", Kind: route.KindInbox},
		{Path: "/conversations/:conversationId", Kind: route.KindConversation},
		{Path: "/login*", Kind: route.KindWebView, Category: route.CategoryExternal},

		{Path: "/", Kind: route.KindDashboard, Scoped: true},
		{Path: "/:contextId", Kind: route.KindNotificationList, Scoped: true, RequiredQuery: "recent_activity"},
		{Path: "/:contextId", Kind: route.KindCourseBrowser, Scoped: true},

		{Path: "/:contextId/modules", Kind: route.KindModuleList, Scoped: true},
		{Path: "/:contextId/modules/items/:moduleItemId", Kind: route.KindModuleList, Scoped: true},
		{Path: "/:contextId/modules/:moduleId", Kind: route.KindModuleList, Scoped: true},

		{Path: "/:contextId/pages/:pageId", Kind: route.KindModuleItem, Scoped: true, RequiredQuery: moduleItem},
		{Path: "/:contextId/quizzes/:quizId", Kind: route.KindModuleItem, Scoped: true, RequiredQuery: moduleItem},
		{Path: "/:contextId/discussion_topics/:messageId", Kind: route.KindModuleItem, Scoped: true, RequiredQuery: moduleItem},
		{Path: "/:contextId/assignments/:assignmentId", Kind: route.KindModuleItem, Scoped: true, RequiredQuery: moduleItem},
		{Path: "/:contextId/files/:fileId", Kind: route.KindModuleItem, Scoped: true, RequiredQuery: moduleItem},

		{Path: "/:contextId/notifications", Kind: route.KindNotificationList, Scoped: true},

		{Path: "/:contextId/grades", Kind: route.KindGrades, Scoped: true},
		{Path: "/:contextId/grades/:assignmentId", Kind: route.KindAssignmentDetails, Scoped: true},

		{Path: "/:contextId/users", Kind: route.KindPeopleList, Scoped: true},
		{Path: "/:contextId/users/:userId", Kind: route.KindPeopleDetails, Scoped: true, GroupKind: route.KindPeopleList},

		{Path: "/:contextId/files", Kind: route.KindFile, Category: file, Scoped: true, RequiredQuery: "preview"},
		{Path: "/:contextId/files", Kind: route.KindFileList, Scoped: true},
		{Path: "/:contextId/files/folder/:folderName", Kind: route.KindFileList, Scoped: true},
		{Path: "/:contextId/files/:fileId/download", Kind: route.KindFile, Category: file, Scoped: true},
		{Path: "/:contextId/files/:fileId", Kind: route.KindFile, Category: file, Scoped: true},
		{Path: "/:contextId/files/folder/**/:fileId", Kind: route.KindFile, Category: file, Scoped: true},

		{Path: "/:contextId/discussion_topics", Kind: route.KindDiscussionList, Scoped: true},
		{Path: "/:contextId/discussion_topics/:messageId", Kind: route.KindDiscussionDetails, Scoped: true},

		{Path: "/:contextId/pages", Kind: route.KindPageList, Scoped: true},
		{Path: "/:contextId/pages/:pageId", Kind: route.KindPageDetails, Scoped: true},
		{Path: "/:contextId/wiki", Kind: route.KindPageList, Scoped: true},
		{Path: "/:contextId/wiki/:pageId", Kind: route.KindPageDetails, Scoped: true},

		{Path: "/:contextId/announcements", Kind: route.KindAnnouncementList, Scoped: true},
		{Path: "/:contextId/announcements/:messageId", Kind: route.KindDiscussionDetails, Scoped: true},

		{Path: "/:contextId/quizzes", Kind: route.KindQuizList, Scoped: true},
		{Path: "/:contextId/quizzes/:quizId", Kind: route.KindQuizDetails, Scoped: true},

		{Path: "/calendar", Kind: route.KindCalendar},
		{Path: "/:contextId/calendar_events/:eventId", Kind: route.KindCalendar, Scoped: true},

		{Path: "/:contextId/assignments/syllabus", Kind: route.KindSyllabus, Scoped: true},
		{Path: "/:contextId/assignments", Kind: route.KindAssignmentList, Scoped: true},
		{Path: "/:contextId/assignments/:assignmentId", Kind: route.KindAssignmentDetails, Scoped: true},
		{Path: "/:contextId/assignments/:assignmentId/submissions/:submissionId", Kind: route.KindSubmissionDetails, Scoped: true},

		{Path: "/:contextId/settings", Kind: route.KindCourseSettings, Scoped: true},
		{Path: "/profile/settings", Kind: route.KindProfileSettings, Style: route.StyleDialog},

		{Path: "/:contextId/lti_collaborations*", Kind: route.KindUnsupportedFeature, Scoped: true},
		{Path: "/:contextId/collaborations*", Kind: route.KindUnsupportedFeature, Scoped: true},
		{Path: "/:contextId/outcomes*", Kind: route.KindUnsupportedFeature, Scoped: true},
		{Path: "/:contextId/conferences*", Kind: route.KindConferenceList, Scoped: true},

		{Path: "/files", Kind: route.KindFileList, UserContext: true},
		{Path: "/files/folder/:folderName", Kind: route.KindFileList, UserContext: true},
		{Path: "/files/:fileId/download", Kind: route.KindFile, Category: file},
		{Path: "/files/:fileId", Kind: route.KindFile, Category: file},
		{Path: "/files/folder/**/:fileId", Kind: route.KindFile, Category: file},

		{Path: "/profile/communication", Kind: route.KindNotificationPreferences, Category: route.CategoryNotificationPreferences, Style: route.StyleDialog},

		{Path: "/:contextId/external_tools/:externalId", Kind: route.KindLTILaunch, Category: route.CategoryLTI, Scoped: true},

		// Anything else inside a course still loads the course.
		{Path: "/:contextId/*", Kind: route.KindUnsupportedFeature, Scoped: true},
	}
}
