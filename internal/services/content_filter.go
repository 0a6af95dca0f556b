package services

import (
	"fmt"
	"regexp"
	"strings"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"porn", "porno", "nude", "nudes",
	"scam", "scammer", "phishing", "malware",
}

// Rejection reasons returned by ContentFilter.Check.
const (
	ReasonInappropriate = "inappropriate_language"
	ReasonURL           = "url_not_allowed"
	ReasonContactInfo   = "contact_info_not_allowed"
	ReasonSpam          = "spam_detected"
	ReasonExcessiveCaps = "excessive_caps"
)

// ContentFilter screens free text (titles, descriptions, report reasons)
// before it is stored. Patterns are compiled once and read-only afterwards.
type ContentFilter struct {
	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	f := &ContentFilter{
		bannedWordRegexps: make([]*regexp.Regexp, 0, len(BannedWords)),
	}
	for _, word := range BannedWords {
		f.bannedWordRegexps = append(f.bannedWordRegexps, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	f.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	f.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	f.phonePattern = regexp.MustCompile(`\b\d{5}[-.\s]?\d{5}\b|\+91[-.\s]?\d{10}\b`)
	f.repeatedCharPattern = regexp.MustCompile(repeatedCharExpr(6))
	f.allCapsPattern = regexp.MustCompile(`\b[A-Z]{6,}\b`)
	return f
}

// Check returns ok=false and a reason code when text breaks a rule.
func (f *ContentFilter) Check(text string) (bool, string) {
	if text == "" {
		return true, ""
	}
	if f.ContainsProfanity(text) {
		return false, ReasonInappropriate
	}
	if f.urlPattern.MatchString(text) {
		return false, ReasonURL
	}
	if f.emailPattern.MatchString(text) || f.phonePattern.MatchString(text) {
		return false, ReasonContactInfo
	}
	if f.repeatedCharPattern.MatchString(text) {
		return false, ReasonSpam
	}
	if len(f.allCapsPattern.FindAllString(text, -1)) > 2 {
		return false, ReasonExcessiveCaps
	}
	return true, ""
}

func (f *ContentFilter) ContainsProfanity(text string) bool {
	for _, re := range f.bannedWordRegexps {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// repeatedCharExpr matches any letter or !?. repeated n or more times.
// RE2 has no backreferences, so every character gets its own branch.
func repeatedCharExpr(n int) string {
	var parts []string
	for c := 'a'; c <= 'z'; c++ {
		parts = append(parts, fmt.Sprintf("%c{%d,}", c, n))
	}
	for _, c := range []string{"!", `\?`, `\.`} {
		parts = append(parts, fmt.Sprintf("%s{%d,}", c, n))
	}
	return "(?i)(" + strings.Join(parts, "|") + ")"
}

func RejectionMessage(reason string) string {
	messages := map[string]string{
		ReasonInappropriate: "Text contains inappropriate language.",
		ReasonURL:           "Links are not allowed here.",
		ReasonContactInfo:   "Contact information is not allowed.",
		ReasonSpam:          "Text appears to be spam.",
		ReasonExcessiveCaps: "Please avoid excessive capital letters.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Text does not meet the content guidelines."
}
