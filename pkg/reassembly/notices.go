package reassembly

import (
	"regexp"
	"strings"
)

// tableReferencePhrases are phrasings the agent uses when it intends to
// show a table. When one appears in answer text but no table event
// arrives before completion, the turn is degraded and the user gets a
// notice instead of silently missing data.
var tableReferencePhrases = []string{
	"please find the requested table below",
	"here is the table",
	"the table below shows",
	"find the table below",
	"requested table below",
	"show the table",
	"display the table",
	"table that shows",
	"see the table",
	"table data",
	"show you the data in a table",
}

// toolResultRef matches textual references to earlier tool results, the
// usual symptom of an agent pointing at data it never re-emits.
var toolResultRef = regexp.MustCompile(`tool result ID:\s*([a-zA-Z0-9_]+)`)

const missingTableNotice = "The agent mentioned showing a table, but the table data was not included in this response. Ask the agent to re-run the query to see the data."

// detectTableReference reports whether a text fragment announces a table,
// along with any tool result ids it references.
func detectTableReference(text string) (bool, []string) {
	var referenced bool
	if len(strings.TrimSpace(text)) >= 5 {
		lower := strings.ToLower(text)
		for _, phrase := range tableReferencePhrases {
			if strings.Contains(lower, phrase) {
				referenced = true
				break
			}
		}
	}

	var ids []string
	for _, m := range toolResultRef.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return referenced, ids
}
