// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/noldarim/navlink/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command tree with a temporary config whose session is
// signed in to testutil.TestDomain.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  domain: "+testutil.TestDomain+"\n"), 0o644))

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", path}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestMatch_JSON(t *testing.T) {
	out, err := execute(t, "", "match", "-o", "json", "https://school.example.com/courses/42/assignments/5")
	require.NoError(t, err)

	var res struct {
		Routable bool `json:"routable"`
		Internal bool `json:"internal"`
		Route    struct {
			Kind       string            `json:"kind"`
			PathParams map[string]string `json:"path_params"`
		} `json:"route"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Routable)
	assert.True(t, res.Internal)
	assert.Equal(t, "assignment_details", res.Route.Kind)
	assert.Equal(t, "5", res.Route.PathParams["assignmentId"])
}

func TestMatch_YAML(t *testing.T) {
	out, err := execute(t, "", "match", "/courses/3/grades")
	require.NoError(t, err)
	assert.Contains(t, out, "routable: true")
	assert.Contains(t, out, "kind: grades")
}

func TestMatch_Unroutable(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		reason string
	}{
		{name: "session domain", args: []string{"https://other.example.com/courses/1"}, reason: "reason: cross_domain"},
		{name: "domain flag wins", args: []string{"--domain", "other.example.com", "https://school.example.com/courses/1"}, reason: "reason: cross_domain"},
		{name: "bad id", args: []string{"/courses/abc/grades"}, reason: "reason: bad_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", append([]string{"match"}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "routable: false")
			assert.Contains(t, out, tt.reason)
		})
	}
}

func TestMatch_BadOutputFormat(t *testing.T) {
	_, err := execute(t, "", "match", "-o", "xml", "/courses/3/grades")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		signal string
		want   []string
	}{
		{name: "url", signal: `{"url":"/courses/1","domain":"school.example.com"}`, want: []string{"action: apply_url", "url: /courses/1", "domain_hint: school.example.com"}},
		{name: "message", signal: `{"message":"Hello","messageType":"toast"}`, want: []string{"action: show_message", "message: Hello"}},
		{name: "route", signal: `{"route":{"kind":"calendar"}}`, want: []string{"action: apply_route", "kind: calendar"}},
		{name: "empty", signal: `{}`, want: []string{"action: ignore"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.signal, "classify", "-")
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestClassify_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"push":true,"push_payload":{"html_url":"/conversations/3"}}`), 0o644))

	out, err := execute(t, "", "classify", "-o", "json", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"action": "apply_url"`)
	assert.Contains(t, out, `"url": "/conversations/3"`)
}

func TestClassify_InvalidJSON(t *testing.T) {
	_, err := execute(t, "{", "classify", "-")
	assert.ErrorContains(t, err, "failed to decode signal")
}

func TestURL(t *testing.T) {
	out, err := execute(t, "", "url", "assignment_details", "--course", "42", "--param", "assignmentId=5")
	require.NoError(t, err)
	assert.Equal(t, "https://school.example.com/courses/42/grades/5\n", out)

	out, err = execute(t, "", "url", "discussion_list", "--group", "3", "--domain", "other.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/groups/3/discussion_topics\n", out)
}

func TestURL_Errors(t *testing.T) {
	_, err := execute(t, "", "url", "bogus")
	assert.Error(t, err)

	_, err = execute(t, "", "url", "course_browser")
	assert.Error(t, err, "scoped kinds need a context")

	_, err = execute(t, "", "url", "grades", "--course", "1", "--group", "2")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "navlink version "+appVersion+"\n", out)
}
