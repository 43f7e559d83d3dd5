package source

import (
	"regexp"
	"strings"
)

var linkPattern = regexp.MustCompile(`https?://`)

// FilterComments keeps the first n comments that are narratable: not posted by a
// moderator, without links and not deleted or removed.
func FilterComments(comments []Comment, n int) []Comment {
	if n <= 0 {
		return nil
	}
	out := make([]Comment, 0, n)
	for _, c := range comments {
		if c.Distinguished == "moderator" {
			continue
		}
		body := strings.TrimSpace(c.Body)
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}
		if linkPattern.MatchString(body) {
			continue
		}
		out = append(out, c)
		if len(out) >= n {
			break
		}
	}
	return out
}

// AuthorName returns the display name of a comment or thread author
func AuthorName(author string) string {
	if author == "" || author == "[deleted]" {
		return "Unknown"
	}
	return author
}
