package chatcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/frostpeakco/floe/pkg/cliui"
	"github.com/frostpeakco/floe/pkg/render"
	"github.com/frostpeakco/floe/pkg/thread"
)

// turnRenderer turns streamed render operations into terminal output.
//
// Text slots arrive as replace-style updates. While an update only
// appends to what a slot already holds, the new suffix streams straight
// to the terminal. When a slot is rewritten in place (the citation pass
// at the end of a turn does this), the rewrite is remembered and the
// final answer is printed again once the turn completes, since a
// terminal cannot edit already-printed lines.
type turnRenderer struct {
	w        io.Writer
	markdown bool

	slots     map[string]string
	slotOrder []string

	prompted    bool
	atLineStart bool
	rewritten   bool
	citations   []thread.Citation
}

func newTurnRenderer(w io.Writer, markdown bool) *turnRenderer {
	return &turnRenderer{
		w:           w,
		markdown:    markdown,
		slots:       make(map[string]string),
		atLineStart: true,
	}
}

func slotID(key *render.ContentKey, kind string) string {
	if key == nil {
		return kind
	}
	return fmt.Sprintf("%s:%d:%s", key.RequestID, key.Index, kind)
}

func (r *turnRenderer) apply(op renderOp) {
	switch op.Op {
	case "status":
		r.line(cliui.DimStyle.Render("· " + op.Message))
	case "text":
		r.streamSlot(slotID(op.Key, "text"), op.Text, false)
	case "reasoning":
		r.streamSlot(slotID(op.Key, "reasoning"), op.Text, true)
	case "sql_explanation":
		r.streamSlot(slotID(op.Key, "sql"), op.Text, true)
	case "clear":
		r.clear(op.Keys)
	case "tool_use":
		msg := "⚙ " + op.Name
		if op.Text != "" {
			msg += "  " + op.Text
		}
		r.line(cliui.DimStyle.Render(msg))
	case "tool_result":
		msg := op.Name + " finished"
		if op.SQL != "" {
			msg += "  " + op.SQL
		}
		r.line(cliui.DimStyle.Render("⚙ " + msg))
	case "table":
		r.renderTable(op.Table)
	case "chart":
		r.line(cliui.DimStyle.Render("▦ chart received (view it in the web chat)"))
	case "citations":
		r.citations = op.Citations
	case "notice":
		r.line(cliui.WarnStyle.Render("! ") + op.Text)
	case "error":
		msg := op.Message
		if op.Code != "" {
			msg = op.Code + ": " + msg
		}
		r.line(cliui.FailMark + " " + msg)
	case "done":
	}
}

// streamSlot prints the new suffix of a replace-style slot update, or
// records a rewrite for the final pass.
func (r *turnRenderer) streamSlot(id, text string, dim bool) {
	prev, seen := r.slots[id]
	if !seen {
		r.slotOrder = append(r.slotOrder, id)
	}
	r.slots[id] = text

	if !strings.HasPrefix(text, prev) {
		r.rewritten = true
		return
	}

	suffix := text[len(prev):]
	if suffix == "" {
		return
	}

	if !r.prompted {
		r.ensureLineStart()
		fmt.Fprint(r.w, agentPrompt)
		r.prompted = true
		r.atLineStart = false
	}

	if dim {
		suffix = cliui.DimStyle.Render(suffix)
	}
	fmt.Fprint(r.w, suffix)
	r.atLineStart = strings.HasSuffix(text, "\n")
}

// clear drops slots whose content the agent discarded during plan
// re-evaluation.
func (r *turnRenderer) clear(keys []render.ContentKey) {
	for _, key := range keys {
		for _, kind := range []string{"text", "reasoning", "sql"} {
			id := slotID(&key, kind)
			if _, ok := r.slots[id]; !ok {
				continue
			}
			delete(r.slots, id)
			for i, ordered := range r.slotOrder {
				if ordered == id {
					r.slotOrder = append(r.slotOrder[:i], r.slotOrder[i+1:]...)
					break
				}
			}
		}
	}
	r.line(cliui.DimStyle.Render("· plan revised, restarting answer"))
	r.prompted = false
}

// finish completes the turn's output: the rewritten answer when the
// citation pass changed it, then the source list.
func (r *turnRenderer) finish() {
	r.ensureLineStart()

	if r.rewritten {
		text := r.finalText()
		if text != "" {
			fmt.Fprintln(r.w)
			if r.markdown {
				rendered, err := cliui.RenderMarkdown(text)
				if err != nil {
					fmt.Fprintln(r.w, text)
				} else {
					fmt.Fprint(r.w, rendered)
				}
			} else {
				fmt.Fprintln(r.w, text)
			}
		}
	}

	if len(r.citations) > 0 {
		fmt.Fprintln(r.w)
		for _, cit := range r.citations {
			fmt.Fprintf(r.w, "  %s %s\n",
				cliui.HashStyle.Render(fmt.Sprintf("[%d]", cit.Number)),
				cliui.ValueStyle.Render(cit.DocTitle),
			)
		}
	}
	r.atLineStart = true
}

// finalText joins the surviving text slots in arrival order.
func (r *turnRenderer) finalText() string {
	var parts []string
	for _, id := range r.slotOrder {
		if !strings.HasSuffix(id, ":text") {
			continue
		}
		if text := r.slots[id]; text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// renderTable prints a result set as aligned columns.
func (r *turnRenderer) renderTable(table *thread.Table) {
	if table == nil || len(table.Columns) == 0 {
		return
	}

	widths := make([]int, len(table.Columns))
	for i, col := range table.Columns {
		widths[i] = len(col)
	}

	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := make([]string, len(table.Columns))
		for i := range table.Columns {
			if i < len(row) {
				cells[i] = fmt.Sprintf("%v", row[i])
			}
			if len(cells[i]) > widths[i] {
				widths[i] = len(cells[i])
			}
		}
		rows = append(rows, cells)
	}

	r.ensureLineStart()
	fmt.Fprintln(r.w)

	var header strings.Builder
	for i, col := range table.Columns {
		fmt.Fprintf(&header, "  %-*s", widths[i], col)
	}
	fmt.Fprintln(r.w, cliui.KeyStyle.Render(header.String()))

	for _, cells := range rows {
		var line strings.Builder
		for i, cell := range cells {
			fmt.Fprintf(&line, "  %-*s", widths[i], cell)
		}
		fmt.Fprintln(r.w, line.String())
	}
	fmt.Fprintln(r.w)
}

// line prints a full line of its own, breaking out of any mid-stream text.
func (r *turnRenderer) line(text string) {
	r.ensureLineStart()
	fmt.Fprintf(r.w, "  %s\n", text)
}

func (r *turnRenderer) ensureLineStart() {
	if !r.atLineStart {
		fmt.Fprintln(r.w)
		r.atLineStart = true
	}
}
