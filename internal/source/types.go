package source

import (
	"errors"
	"time"
)

var (
	ErrThreadNotFound   = errors.New("thread not found")
	ErrInvalidThreadURL = errors.New("not a reddit thread url")
)

// Thread is a submission with its flattened comment tree
type Thread struct {
	ID          string
	Title       string
	Author      string
	Subreddit   string
	Permalink   string
	URL         string
	SelfText    string
	Score       int
	NumComments int
	Over18      bool
	Created     time.Time
	Comments    []Comment
}

// Link returns the canonical thread URL used as its dedup key
func (t Thread) Link() string {
	if t.Permalink != "" {
		return "https://www.reddit.com" + t.Permalink
	}
	return t.URL
}

// Comment is a single comment, depth 0 being top level
type Comment struct {
	ID            string
	Author        string
	Body          string
	Score         int
	Distinguished string
	Depth         int
}
