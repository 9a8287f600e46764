// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tabbar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTabBar(t *testing.T) {
	m := New([]Tab{{ID: "home", Label: "Home"}, {ID: "inbox", Label: "Inbox"}})

	assert.Empty(t, m.Active())
	m.SetActive("inbox")
	assert.Equal(t, "inbox", m.Active())

	view := m.View()
	assert.Contains(t, view, "Home")
	assert.Contains(t, view, "Inbox")

	m.SetHidden(true)
	assert.True(t, m.Hidden())
	assert.Empty(t, m.View())
}

func TestTabBar_Empty(t *testing.T) {
	assert.Empty(t, New(nil).View())
}
