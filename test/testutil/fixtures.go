// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"github.com/noldarim/navlink/internal/models"
)

// TestDomain is the signed-in domain used across tests
const TestDomain = "school.example.com"

// SampleCourse returns a course fixture
func SampleCourse(id int64) *models.Course {
	return &models.Course{
		ID:         id,
		Name:       "Introduction to Testing",
		CourseCode: "TEST-101",
	}
}

// SampleGroup returns a group fixture belonging to course 1
func SampleGroup(id int64) *models.Group {
	return &models.Group{
		ID:       id,
		Name:     "Study Group",
		CourseID: 1,
	}
}

// SampleUser returns the signed-in user fixture
func SampleUser() *models.User {
	return &models.User{
		ID:        99,
		Name:      "Sam Student",
		ShortName: "Sam",
		Email:     "sam@school.example.com",
	}
}

// SampleFile returns an unrestricted file fixture
func SampleFile(id int64) *models.FileMeta {
	return &models.FileMeta{
		ID:          id,
		DisplayName: "syllabus.pdf",
		ContentType: "application/pdf",
		URL:         "https://school.example.com/files/7/download",
		Size:        2048,
		CourseID:    42,
	}
}

// LockedFile returns a file that is locked for the current user
func LockedFile(id int64) *models.FileMeta {
	f := SampleFile(id)
	f.LockedForUser = true
	return f
}
