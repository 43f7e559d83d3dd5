package content

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// DefaultCharacterThreshold is the minimum length of a grouped paragraph chunk
const DefaultCharacterThreshold = 150

type acronym struct {
	pattern     *regexp.Regexp
	replacement string
}

// acronyms are matched case-sensitively on word boundaries, longest first
var acronyms = []acronym{
	{regexp.MustCompile(`(?i)\btl;?\s?dr\b:?`), "Too long, didn't read:"},
	{regexp.MustCompile(`\bWIBTA\b`), "Would I be the asshole"},
	{regexp.MustCompile(`\bAITAH?\b`), "Am I the asshole"},
	{regexp.MustCompile(`\bWIBTAH\b`), "Would I be the asshole"},
	{regexp.MustCompile(`\bTIFU\b`), "Today I fucked up"},
	{regexp.MustCompile(`\bIIRC\b`), "if I remember correctly"},
	{regexp.MustCompile(`\bAFAIK\b`), "as far as I know"},
	{regexp.MustCompile(`\bIMHO\b`), "in my humble opinion"},
	{regexp.MustCompile(`\bELI5\b`), "explain like I'm five"},
	{regexp.MustCompile(`\bNTA\b`), "not the asshole"},
	{regexp.MustCompile(`\bYTA\b`), "you're the asshole"},
	{regexp.MustCompile(`\bESH\b`), "everyone sucks here"},
	{regexp.MustCompile(`\bNAH\b`), "no assholes here"},
	{regexp.MustCompile(`\bTIL\b`), "today I learned"},
	{regexp.MustCompile(`\bDAE\b`), "does anyone else"},
	{regexp.MustCompile(`\bIMO\b`), "in my opinion"},
	{regexp.MustCompile(`\bTBH\b`), "to be honest"},
	{regexp.MustCompile(`\bSMH\b`), "shaking my head"},
	{regexp.MustCompile(`\bFWIW\b`), "for what it's worth"},
	{regexp.MustCompile(`\bOP\b`), "the original poster"},
	{regexp.MustCompile(`\bBF\b`), "boyfriend"},
	{regexp.MustCompile(`\bGF\b`), "girlfriend"},
	{regexp.MustCompile(`\bMIL\b`), "mother-in-law"},
	{regexp.MustCompile(`\bFIL\b`), "father-in-law"},
	{regexp.MustCompile(`\bw/o\b`), "without"},
	{regexp.MustCompile(`\bw/`), "with "},
}

// ageGender matches reddit's "(28M)" / "(f25)" markers
var ageGender = regexp.MustCompile(`\((\d{1,2})\s?([MmFf])\)|\(([MmFf])\s?(\d{1,2})\)`)

var collapseSpaces = regexp.MustCompile(`[ \t]{2,}`)

// ReplaceAcronyms expands reddit shorthand so it narrates naturally
func ReplaceAcronyms(text string) string {
	for _, a := range acronyms {
		text = a.pattern.ReplaceAllString(text, a.replacement)
	}
	text = ageGender.ReplaceAllStringFunc(text, func(m string) string {
		sub := ageGender.FindStringSubmatch(m)
		age, sex := sub[1], sub[2]
		if age == "" {
			age, sex = sub[4], sub[3]
		}
		if strings.EqualFold(sex, "m") {
			return age + " male"
		}
		return age + " female"
	})
	return collapseSpaces.ReplaceAllString(text, " ")
}

// EnsureTerminalPunctuation appends a period when text does not end a sentence
func EnsureTerminalPunctuation(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	switch last {
	case '.', '!', '?', '…', '"', '\'', ')', '”', '’', ':', ';':
		return text
	}
	return text + "."
}

// Normalize prepares text for narration
func Normalize(text string) string {
	return EnsureTerminalPunctuation(ReplaceAcronyms(text))
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits text on blank lines, dropping empty paragraphs
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := blankLines.Split(text, -1)
	return lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
}

// SplitParagraphs groups consecutive paragraphs into chunks of at least threshold
// characters. The last chunk may be shorter. Paragraphs within a chunk are joined by a newline.
func SplitParagraphs(text string, threshold int) []string {
	if threshold <= 0 {
		threshold = DefaultCharacterThreshold
	}

	var chunks []string
	var group []string
	length := 0
	for _, p := range Paragraphs(text) {
		group = append(group, p)
		length += utf8.RuneCountInString(p)
		if length >= threshold {
			chunks = append(chunks, strings.Join(group, "\n"))
			group, length = nil, 0
		}
	}
	if len(group) > 0 {
		chunks = append(chunks, strings.Join(group, "\n"))
	}
	return chunks
}
