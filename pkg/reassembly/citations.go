package reassembly

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/frostpeakco/floe/pkg/thread"
)

// citeTag matches complete citation markers in answer text. The agent
// wraps search result identifiers in <cite> tags, and a tag can straddle
// delta boundaries, so matching happens against full buffers at
// completion rather than against individual fragments.
var citeTag = regexp.MustCompile(`<cite>(cs_[a-f0-9-]+)</cite>`)

// needsCitationPass reports whether a text buffer may contain citation
// markers worth processing.
func needsCitationPass(text string) bool {
	return strings.Contains(text, "cs_") || strings.Contains(text, "<cite>")
}

// citationSet numbers the sources of a single agent run. Numbers start
// at 1, are assigned in first-seen order, and are never reused, so a
// source cited twice keeps its original number.
type citationSet struct {
	numbers map[string]int
	sources map[string]thread.Citation
	order   []string
	counter int
}

func newCitationSet() *citationSet {
	return &citationSet{
		numbers: make(map[string]int),
		sources: make(map[string]thread.Citation),
	}
}

// number returns the citation number for a search result id, allocating
// the next one on first sight.
func (c *citationSet) number(id string) int {
	if n, ok := c.numbers[id]; ok {
		return n
	}
	c.counter++
	c.numbers[id] = c.counter
	c.order = append(c.order, id)
	return c.counter
}

// addSource records document metadata for a search result id without
// numbering it. Tool results carry citation data before the answer text
// references it; the number is assigned when an annotation or a <cite>
// marker names the id.
func (c *citationSet) addSource(cit thread.Citation) {
	if cit.SearchResultID == "" {
		return
	}
	if existing, ok := c.sources[cit.SearchResultID]; ok && existing.DocTitle != "" {
		return
	}
	c.sources[cit.SearchResultID] = cit
}

// processText rewrites complete <cite> tags into numbered markers in
// order of appearance. Partial tags are left untouched.
func (c *citationSet) processText(text string) string {
	return citeTag.ReplaceAllStringFunc(text, func(tag string) string {
		id := tag[len("<cite>") : len(tag)-len("</cite>")]
		return fmt.Sprintf("[%d]", c.number(id))
	})
}

// list returns the numbered sources in citation order. Sources that were
// stored but never referenced are excluded.
func (c *citationSet) list() []thread.Citation {
	out := make([]thread.Citation, 0, len(c.order))
	for _, id := range c.order {
		cit := c.sources[id]
		cit.SearchResultID = id
		cit.Number = c.numbers[id]
		if cit.DocTitle == "" {
			cit.DocTitle = fmt.Sprintf("Citation %d", cit.Number)
		}
		out = append(out, cit)
	}
	return out
}
