package vision

import (
	"regexp"
	"strconv"
	"strings"
)

var digitsRe = regexp.MustCompile(`\d+`)

// ParseMeasureValue extracts the integer part of the first number in a model answer.
// "measurement: 00123.45" yields 123; text without digits yields nil.
func ParseMeasureValue(text string) *int64 {
	text = strings.Trim(strings.TrimSpace(text), "`")
	m := digitsRe.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
