package task

import (
	"regexp"
	"strings"
)

const hashtagBody = `#[^ !@#$%^&*(),.?":{}|<>]+`

var (
	hashtagRegexp        = regexp.MustCompile(`(^|\s)` + hashtagBody)
	HashtagFromEndRegexp = regexp.MustCompile(`(^|\s)` + hashtagBody + `$`)
)

// ExtractHashtags returns the #tags in text, in order, with the leading #.
// Tags stay in the text; duplicates are kept.
func ExtractHashtags(text string) []string {
	matches := hashtagRegexp.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.TrimSpace(m))
	}
	return tags
}

// NormalizeTag lower-cases a tag and makes sure it starts with #.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}

// HasTag matches a tag exactly or as a parent of a nested tag
// (#work matches #work/client).
func (t *Task) HasTag(tag string) bool {
	want := NormalizeTag(tag)
	if want == "" {
		return false
	}
	for _, have := range t.Tags {
		have = strings.ToLower(have)
		if have == want || strings.HasPrefix(have, want+"/") {
			return true
		}
	}
	return false
}
