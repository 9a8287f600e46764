// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package route

import "fmt"

// Kind identifies which screen a route presents.
type Kind string

const (
	KindDashboard               Kind = "dashboard"
	KindInbox                   Kind = "inbox"
	KindConversation            Kind = "conversation"
	KindCalendar                Kind = "calendar"
	KindTodoList                Kind = "todo_list"
	KindNotificationList        Kind = "notification_list"
	KindCourseBrowser           Kind = "course_browser"
	KindModuleList              Kind = "module_list"
	KindModuleItem              Kind = "module_item"
	KindGrades                  Kind = "grades"
	KindPeopleList              Kind = "people_list"
	KindPeopleDetails           Kind = "people_details"
	KindFileList                Kind = "file_list"
	KindFile                    Kind = "file"
	KindDiscussionList          Kind = "discussion_list"
	KindDiscussionDetails       Kind = "discussion_details"
	KindPageList                Kind = "page_list"
	KindPageDetails             Kind = "page_details"
	KindAnnouncementList        Kind = "announcement_list"
	KindQuizList                Kind = "quiz_list"
	KindQuizDetails             Kind = "quiz_details"
	KindSyllabus                Kind = "syllabus"
	KindAssignmentList          Kind = "assignment_list"
	KindAssignmentDetails       Kind = "assignment_details"
	KindSubmissionDetails       Kind = "submission_details"
	KindCourseSettings          Kind = "course_settings"
	KindConferenceList          Kind = "conference_list"
	KindProfileSettings         Kind = "profile_settings"
	KindNotificationPreferences Kind = "notification_preferences"
	KindLTILaunch               Kind = "lti_launch"
	KindUnsupportedFeature      Kind = "unsupported_feature"
	KindWebView                 Kind = "web_view"
)

var knownKinds = map[Kind]struct{}{
	KindDashboard: {}, KindInbox: {}, KindConversation: {}, KindCalendar: {},
	KindTodoList: {}, KindNotificationList: {}, KindCourseBrowser: {},
	KindModuleList: {}, KindModuleItem: {}, KindGrades: {}, KindPeopleList: {},
	KindPeopleDetails: {}, KindFileList: {}, KindFile: {}, KindDiscussionList: {},
	KindDiscussionDetails: {}, KindPageList: {}, KindPageDetails: {},
	KindAnnouncementList: {}, KindQuizList: {}, KindQuizDetails: {},
	KindSyllabus: {}, KindAssignmentList: {}, KindAssignmentDetails: {},
	KindSubmissionDetails: {}, KindCourseSettings: {}, KindConferenceList: {},
	KindProfileSettings: {}, KindNotificationPreferences: {}, KindLTILaunch: {},
	KindUnsupportedFeature: {}, KindWebView: {},
}

// Valid reports whether k is one of the known screen kinds.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// ParseKind validates s as a screen kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown screen kind %q", s)
	}
	return k, nil
}

// Category selects how a route is dispatched.
type Category string

const (
	CategoryDefault                 Category = "default"
	CategoryFile                    Category = "file"
	CategoryLTI                     Category = "lti"
	CategoryNotificationPreferences Category = "notification_preferences"
	CategoryExternal                Category = "external"
)

func (c Category) valid() bool {
	switch c {
	case CategoryDefault, CategoryFile, CategoryLTI, CategoryNotificationPreferences, CategoryExternal:
		return true
	}
	return false
}

// Style is the presentation style of a screen.
type Style string

const (
	StyleFullscreen Style = "fullscreen"
	StyleDialog     Style = "dialog"
)

func (s Style) valid() bool {
	return s == StyleFullscreen || s == StyleDialog
}
