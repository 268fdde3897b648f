// Package validation holds the field rules for thoughts and credentials.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"happythoughts/internal/models"
)

var (
	ErrMessageRequired = errors.New("Message is required")
	ErrMessageTooLong  = fmt.Errorf("Message must be at most %d characters", models.MaxMessageLength)
	ErrMessageEmpty    = errors.New("Message can not be empty")
	ErrHeartsNotNumber = errors.New("Hearts must be a number")
	ErrHeartsNegative  = errors.New("Hearts can not be negative")
)

// NormalizeMessage trims msg and checks it for a new thought.
func NormalizeMessage(msg string) (string, error) {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		return "", ErrMessageRequired
	}
	if utf8.RuneCountInString(trimmed) > models.MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return trimmed, nil
}

// NormalizeMessagePatch is NormalizeMessage for a partial update, where an
// empty message has its own wording.
func NormalizeMessagePatch(msg string) (string, error) {
	trimmed, err := NormalizeMessage(msg)
	if errors.Is(err, ErrMessageRequired) {
		return "", ErrMessageEmpty
	}
	return trimmed, err
}

// ParseHearts accepts a JSON number or a numeric JSON string holding a
// non-negative integer.
func ParseHearts(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ErrHeartsNotNumber
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, ErrHeartsNotNumber
		}
		text = strings.TrimSpace(text)
	} else {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return 0, ErrHeartsNotNumber
		}
		text = num.String()
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return 0, ErrHeartsNotNumber
	}
	if value < 0 {
		return 0, ErrHeartsNegative
	}
	if value > math.MaxInt32 {
		return 0, ErrHeartsNotNumber
	}
	return int(value), nil
}
