// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package messages renders the user-visible texts raised by the navigator.
package messages

import (
	"embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/noldarim/navlink/internal/logger"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetMessagesLogger()
		log = &l
	})
	return log
}

//go:embed locales/*.toml
var catalogFS embed.FS

var catalogFiles = []string{
	"locales/active.en.toml",
	"locales/active.es.toml",
}

// ID names a catalog entry.
type ID string

const (
	CourseNotFound  ID = "course_not_found"
	GroupNotFound   ID = "group_not_found"
	UnknownContext  ID = "unknown_context"
	FileNotFound    ID = "file_not_found"
	FileLocked      ID = "file_locked"
	DifferentDomain ID = "different_domain"
)

// Catalog localizes message ids for one locale. It is safe for concurrent
// use.
type Catalog struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      language.Tag
}

// New loads the embedded catalogs and selects locale, falling back to
// English for unknown or unsupported locales.
func New(locale string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, f := range catalogFiles {
		if _, err := bundle.LoadMessageFileFS(catalogFS, f); err != nil {
			return nil, fmt.Errorf("failed to load message catalog %s: %w", f, err)
		}
	}

	lang := language.English
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			getLog().Warn().Err(err).Str("locale", locale).Msg("Unknown locale, using English")
		} else {
			matcher := language.NewMatcher(bundle.LanguageTags())
			_, idx, conf := matcher.Match(tag)
			if conf != language.No {
				lang = bundle.LanguageTags()[idx]
			}
		}
	}

	return &Catalog{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, lang.String(), language.English.String()),
		lang:      lang,
	}, nil
}

// Language returns the selected language.
func (c *Catalog) Language() language.Tag {
	return c.lang
}

// Text renders id. data fills template fields such as {{.Domain}}. A
// missing entry renders as the id itself.
func (c *Catalog) Text(id ID, data map[string]any) string {
	msg, err := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    string(id),
		TemplateData: data,
	})
	if err != nil {
		getLog().Warn().Err(err).Str("id", string(id)).Msg("Failed to localize message")
		return string(id)
	}
	return msg
}
