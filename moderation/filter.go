package moderation

import (
	"strings"
	"unicode/utf8"

	"officepulse/contract"
	"officepulse/errors"
)

const DefaultMaxLength = 500

type Verdict int

const (
	Accept Verdict = iota
	RejectEmpty
	RejectTooLong
	RejectOffTopic
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case RejectEmpty:
		return "reject_empty"
	case RejectTooLong:
		return "reject_too_long"
	case RejectOffTopic:
		return "reject_offtopic"
	}
	return "unknown"
}

// Err returns the content policy error behind a rejection, nil for Accept.
func (v Verdict) Err() error {
	switch v {
	case RejectEmpty:
		return errors.ErrEmptyMessage
	case RejectTooLong:
		return errors.ErrMessageTooLong
	case RejectOffTopic:
		return errors.ErrOffTopic
	}
	return nil
}

// ContentFilter gates chat messages before they are stored or broadcast.
type ContentFilter struct {
	classifier contract.Classifier
	maxLength  int
}

func NewContentFilter(classifier contract.Classifier, maxLength int) ContentFilter {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return ContentFilter{classifier: classifier, maxLength: maxLength}
}

// Classify applies, in order: empty after trim, longer than maxLength characters, on topic.
func (f ContentFilter) Classify(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return RejectEmpty
	}
	if utf8.RuneCountInString(text) > f.maxLength {
		return RejectTooLong
	}
	if f.classifier == nil || f.classifier.IsOnTopic(text) {
		return Accept
	}
	return RejectOffTopic
}

func (f ContentFilter) MaxLength() int {
	return f.maxLength
}
