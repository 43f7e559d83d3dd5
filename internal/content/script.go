package content

import (
	"fmt"
	"strings"

	"github.com/kikiluvv/threadshorts/internal/source"
	"github.com/kikiluvv/threadshorts/pkg/util"
)

// Kind classifies what a unit narrates
type Kind string

const (
	KindTitle   Kind = "title"
	KindBody    Kind = "body"
	KindComment Kind = "comment"
)

// Unit is one narrated chunk of a thread. Visual and Audio are filled in as the
// pipeline renders the card and synthesizes the narration.
type Unit struct {
	ID     string
	Kind   Kind
	Group  int // units of the same comment share a group; the title is group 0
	Author string
	Text   string // as displayed
	Speech string // as narrated
	Visual string
	Audio  string
	Voice  string
}

// First reports whether the unit opens its group
func (u *Unit) First() bool {
	return strings.HasSuffix(u.ID, "-0")
}

// Script holds the ordered units of a short
type Script struct {
	Title string
	Link  string
	Units []*Unit
}

// NewScript creates an empty script
func NewScript(title string) *Script {
	return &Script{
		Title: title,
		Units: make([]*Unit, 0),
	}
}

// Add appends a unit
func (s *Script) Add(u *Unit) {
	s.Units = append(s.Units, u)
}

// Get retrieves a unit by ID
func (s *Script) Get(id string) *Unit {
	for _, u := range s.Units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// All returns all units in narration order
func (s *Script) All() []*Unit {
	return s.Units
}

// Group returns the units of one group in order
func (s *Script) Group(g int) []*Unit {
	var out []*Unit
	for _, u := range s.Units {
		if u.Group == g {
			out = append(out, u)
		}
	}
	return out
}

// Groups returns the number of distinct groups
func (s *Script) Groups() int {
	n := 0
	for _, u := range s.Units {
		if u.Group+1 > n {
			n = u.Group + 1
		}
	}
	return n
}

// OutputName is the file name of the rendered short
func (s *Script) OutputName() string {
	return OutputName(s.Title)
}

// OutputName returns "<sanitized title>.mp4"
func OutputName(title string) string {
	name := util.SanitizeFilename(title)
	if name == "" {
		name = "short"
	}
	return name + ".mp4"
}

// Build turns a thread into a script: the title, the self text when present, then
// each of the given comments split into chunks of at least threshold characters.
func Build(t source.Thread, comments []source.Comment, threshold int) (*Script, error) {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return nil, fmt.Errorf("thread %s has no title", t.ID)
	}

	s := NewScript(title)
	s.Link = t.Link()
	s.Add(&Unit{
		ID:     "title-0",
		Kind:   KindTitle,
		Author: source.AuthorName(t.Author),
		Text:   title,
		Speech: Normalize(title),
	})

	for i, chunk := range SplitParagraphs(t.SelfText, threshold) {
		s.Add(&Unit{
			ID:     fmt.Sprintf("body-%d", i),
			Kind:   KindBody,
			Author: source.AuthorName(t.Author),
			Text:   chunk,
			Speech: Normalize(chunk),
		})
	}

	group := 1
	for _, c := range comments {
		chunks := SplitParagraphs(c.Body, threshold)
		if len(chunks) == 0 {
			continue
		}
		for i, chunk := range chunks {
			s.Add(&Unit{
				ID:     fmt.Sprintf("%s-%d", c.ID, i),
				Kind:   KindComment,
				Group:  group,
				Author: source.AuthorName(c.Author),
				Text:   chunk,
				Speech: Normalize(chunk),
			})
		}
		group++
	}

	if len(s.Units) == 1 {
		return nil, fmt.Errorf("thread %s has nothing to narrate beyond its title", t.ID)
	}
	return s, nil
}
