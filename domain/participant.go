// Package domain contains core concepts of the presence system.
// This file defines the display identity derived from a participant's e-mail.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

var palette = []string{
	"#3B82F6", "#8B5CF6", "#EC4899", "#10B981", "#F59E0B",
	"#EF4444", "#06B6D4", "#6366F1", "#84CC16", "#F97316",
}

// Avatar returns up to two upper-cased letters taken from the local part of the e-mail.
func Avatar(email string) string {
	if email == "" {
		return "?"
	}
	name, _, _ := strings.Cut(email, "@")
	runes := []rune(name)
	switch {
	case len(runes) >= 2:
		return strings.ToUpper(string(runes[:2]))
	case len(runes) == 1:
		return strings.ToUpper(string(runes))
	}
	return "?"
}

// Color maps an e-mail to the palette. The same e-mail always yields the same colour.
func Color(email string) string {
	return palette[xxhash.Sum64String(email)%uint64(len(palette))]
}

// Palette returns a copy of the colours Color can produce.
func Palette() []string {
	return append([]string(nil), palette...)
}
