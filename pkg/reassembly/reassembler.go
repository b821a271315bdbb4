// Package reassembly turns a Cortex agent run event stream back into
// coherent content. The run endpoint interleaves text fragments,
// reasoning, tool activity, tables, and charts across numbered content
// slots; a Reassembler accumulates them per slot, keeps every slot
// scoped to its own request, and drives a render.Sink with replace-style
// updates as the stream progresses.
//
// Two behaviors carry most of the weight. When the agent announces a
// plan re-evaluation and then starts streaming at a higher content
// index, the slots it streamed so far are discarded, for the current
// request only. And citation markers are left untouched while text
// streams, because <cite> tags straddle delta boundaries; the marker
// pass runs once against full buffers when the stream completes.
package reassembly

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/cortex/events"
	"github.com/frostpeakco/floe/pkg/render"
	"github.com/frostpeakco/floe/pkg/thread"
)

type contentKind int

const (
	contentText contentKind = iota
	contentTable
	contentChart
)

// contentRecord remembers the arrival order of content slots so the
// persisted message reads top to bottom the way it streamed.
type contentRecord struct {
	kind contentKind
	key  render.ContentKey
}

// Reassembler reassembles one agent run. It is single-turn and
// single-goroutine; create a new one per request.
type Reassembler struct {
	requestID string
	sink      render.Sink
	logger    *zap.Logger

	buffers         map[render.ContentKey]string
	reasoning       map[render.ContentKey]string
	sqlExplanations map[render.ContentKey]string
	tables          map[render.ContentKey]*thread.Table
	charts          map[render.ContentKey]map[string]any
	toolTables      map[render.ContentKey]struct{}
	records         []contentRecord

	active       map[int]struct{}
	highestIndex int
	reevaluating bool

	citations *citationSet

	tableReferenced   bool
	tableCount        int
	referencedToolIDs []string

	messageID      int64
	parentID       int64
	vendorThreadID string

	unknownEvents int

	finalized bool
	failed    bool
}

// New creates a Reassembler for one agent run. All content it produces
// is keyed by the given request id, which is what keeps concurrent or
// successive turns from clobbering each other on a shared surface.
func New(requestID string, sink render.Sink, logger *zap.Logger) *Reassembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reassembler{
		requestID:       requestID,
		sink:            sink,
		logger:          logger,
		buffers:         make(map[render.ContentKey]string),
		reasoning:       make(map[render.ContentKey]string),
		sqlExplanations: make(map[render.ContentKey]string),
		tables:          make(map[render.ContentKey]*thread.Table),
		charts:          make(map[render.ContentKey]map[string]any),
		toolTables:      make(map[render.ContentKey]struct{}),
		active:          make(map[int]struct{}),
		highestIndex:    -1,
		citations:       newCitationSet(),
	}
}

// RequestID returns the request id this run is scoped to.
func (r *Reassembler) RequestID() string {
	return r.requestID
}

func (r *Reassembler) key(index int) render.ContentKey {
	return render.ContentKey{RequestID: r.requestID, Index: index}
}

// HandleEvent processes one stream event. Events after a terminal event
// are ignored.
func (r *Reassembler) HandleEvent(ev *events.Event) {
	if ev == nil || r.finalized {
		return
	}

	switch ev.Kind {
	case events.KindStatus:
		r.handleStatus(ev.Status)
	case events.KindTextDelta:
		r.handleTextDelta(ev.TextDelta)
	case events.KindTextAnnotation:
		r.handleAnnotation(&ev.Annotation.Annotation)
	case events.KindThinkingDelta:
		key := r.key(ev.ThinkingDelta.ContentIndex)
		r.reasoning[key] += ev.ThinkingDelta.Text
		r.sink.Reasoning(key, r.reasoning[key])
	case events.KindThinking:
		// Deltas already rendered the reasoning; just keep the
		// consolidated text when the event carries one.
		if ev.Thinking.Text != "" {
			r.reasoning[r.key(ev.Thinking.ContentIndex)] = ev.Thinking.Text
		}
	case events.KindToolUse:
		r.sink.ToolUse(ev.ToolUse.Name, toolDetail(ev.ToolUse.Input))
	case events.KindToolResult:
		r.handleToolResult(ev.ToolResult)
	case events.KindToolResultStatus:
		if ev.ToolResultStatus.Message != "" {
			r.sink.Status(ev.ToolResultStatus.Message)
		}
	case events.KindAnalystDelta:
		r.handleAnalystDelta(ev.AnalystDelta)
	case events.KindSQLExplanationDelta:
		if ev.SQLExplanationDelta.Delta != "" {
			key := r.key(ev.SQLExplanationDelta.ContentIndex)
			r.sqlExplanations[key] += ev.SQLExplanationDelta.Delta
			r.sink.SQLExplanation(key, r.sqlExplanations[key])
		}
	case events.KindTable:
		r.handleTable(ev.Table)
	case events.KindChart:
		r.handleChart(ev.Chart)
	case events.KindMetadata:
		r.messageID = ev.Metadata.MessageID
		r.parentID = ev.Metadata.ParentID
		r.vendorThreadID = ev.Metadata.ThreadID
	case events.KindDone:
		r.finalize()
	case events.KindResponseError, events.KindError:
		r.handleError(ev.Error)
	case events.KindResponse, events.KindText, events.KindExecutionTrace:
		// Nothing to reassemble.
	case events.KindUnknown:
		r.unknownEvents++
	}
}

func (r *Reassembler) handleStatus(st *events.Status) {
	if st.Reevaluating() {
		// Arm only. Clearing waits for the first delta at a higher
		// content index, which is the signal the agent really did
		// restart its answer.
		r.reevaluating = true
		r.logger.Debug("plan re-evaluation announced", zap.String("request_id", r.requestID))
	}
	if st.Message != "" {
		r.sink.Status(st.Message)
	}
}

func (r *Reassembler) handleTextDelta(d *events.TextDelta) {
	if r.reevaluating && d.ContentIndex > r.highestIndex {
		r.clearActive()
	}

	if d.ContentIndex > r.highestIndex {
		r.highestIndex = d.ContentIndex
	}
	r.active[d.ContentIndex] = struct{}{}

	key := r.key(d.ContentIndex)
	if _, ok := r.buffers[key]; !ok {
		r.records = append(r.records, contentRecord{kind: contentText, key: key})
	}
	r.buffers[key] += d.Text

	if referenced, ids := detectTableReference(d.Text); referenced || len(ids) > 0 {
		if referenced {
			r.tableReferenced = true
		}
		r.referencedToolIDs = append(r.referencedToolIDs, ids...)
	}

	r.sink.Text(key, r.buffers[key])
}

// clearActive discards the slots streamed so far for this request. Slots
// belonging to other requests are untouched.
func (r *Reassembler) clearActive() {
	indices := make([]int, 0, len(r.active))
	for idx := range r.active {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	keys := make([]render.ContentKey, 0, len(indices))
	for _, idx := range indices {
		key := r.key(idx)
		keys = append(keys, key)
		delete(r.buffers, key)
		delete(r.reasoning, key)
	}
	if len(keys) > 0 {
		r.dropRecords(keys)
		r.sink.Clear(keys)
	}

	r.active = make(map[int]struct{})
	r.reevaluating = false
	r.logger.Debug("superseded content cleared",
		zap.String("request_id", r.requestID),
		zap.Int("slots", len(keys)))
}

func (r *Reassembler) dropRecords(keys []render.ContentKey) {
	dropped := make(map[render.ContentKey]struct{}, len(keys))
	for _, k := range keys {
		dropped[k] = struct{}{}
	}
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.kind == contentText {
			if _, ok := dropped[rec.key]; ok {
				continue
			}
		}
		kept = append(kept, rec)
	}
	r.records = kept
}

func (r *Reassembler) handleAnnotation(a *events.AnnotationData) {
	if !a.Valid() {
		r.logger.Debug("skipping annotation without citation data")
		return
	}
	r.citations.addSource(thread.Citation{
		SearchResultID: a.SearchResultID,
		DocID:          a.DocID,
		DocTitle:       a.DocTitle,
		Text:           a.Text,
	})
	n := r.citations.number(a.SearchResultID)
	r.logger.Debug("annotation citation numbered",
		zap.String("search_result_id", a.SearchResultID),
		zap.Int("number", n))
}

func (r *Reassembler) handleToolResult(tr *events.ToolResult) {
	for _, c := range tr.Citations() {
		r.citations.addSource(thread.Citation{
			SearchResultID: c.ID,
			DocID:          c.DocID,
			DocTitle:       c.DocTitle,
			Text:           c.Text,
		})
	}
	r.sink.ToolResult(tr.Name, tr.Status, tr.TextContent(), tr.SQL())

	// SQL tools can inline the query result instead of emitting a
	// separate table event. Render it now and remember the slot so a
	// later table or chart event at the same index is not drawn twice.
	if rs := tr.ResultSet(); rs != nil {
		key := r.key(tr.ContentIndex)
		r.storeTable(key, &thread.Table{
			Title:   "Query Results",
			Columns: rs.Columns(),
			Rows:    rs.Data,
		})
		r.toolTables[key] = struct{}{}
	}
}

// handleAnalystDelta streams analyst commentary into a content slot the
// same way answer text streams.
func (r *Reassembler) handleAnalystDelta(d *events.ToolResultDelta) {
	if d.Delta == "" {
		return
	}
	key := r.key(d.ContentIndex)
	if _, ok := r.buffers[key]; !ok {
		r.records = append(r.records, contentRecord{kind: contentText, key: key})
	}
	r.buffers[key] += d.Delta
	r.sink.Text(key, r.buffers[key])
}

func (r *Reassembler) storeTable(key render.ContentKey, table *thread.Table) {
	if _, ok := r.tables[key]; !ok {
		r.records = append(r.records, contentRecord{kind: contentTable, key: key})
	}
	r.tables[key] = table
	r.tableCount++
	r.sink.Table(key, table)
}

func (r *Reassembler) handleTable(t *events.Table) {
	if t.ResultSet.Empty() {
		r.logger.Debug("ignoring empty result set", zap.Int("content_index", t.ContentIndex))
		return
	}
	key := r.key(t.ContentIndex)
	if _, ok := r.toolTables[key]; ok {
		r.logger.Debug("slot already rendered from a tool result",
			zap.Int("content_index", t.ContentIndex))
		return
	}
	r.storeTable(key, &thread.Table{
		Columns: t.ResultSet.Columns(),
		Rows:    t.ResultSet.Data,
	})
}

func (r *Reassembler) handleChart(c *events.Chart) {
	spec, err := c.Spec()
	if err != nil {
		r.logger.Warn("unparseable chart spec", zap.Error(err))
		return
	}
	key := r.key(c.ContentIndex)
	if _, ok := r.toolTables[key]; ok {
		r.logger.Debug("slot already rendered from a tool result",
			zap.Int("content_index", c.ContentIndex))
		return
	}
	if _, ok := r.charts[key]; !ok {
		r.records = append(r.records, contentRecord{kind: contentChart, key: key})
	}
	r.charts[key] = spec
	r.sink.Chart(key, spec)
}

func (r *Reassembler) handleError(e *events.Error) {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	r.failed = true
	// The partial answer stays on screen, so resolve any completed
	// citation markers before surfacing the error.
	r.rewriteCitations()
	r.finalized = true
	r.sink.Error(e.Code, msg)
}

// Finalize completes the turn as if response.done had arrived. Safe to
// call more than once, and safe when the stream ended without a done
// event.
func (r *Reassembler) Finalize() {
	r.finalize()
}

func (r *Reassembler) finalize() {
	if r.finalized {
		return
	}
	r.finalized = true

	r.rewriteCitations()

	if r.tableReferenced && r.tableCount == 0 {
		r.logger.Warn("table referenced but no table event received",
			zap.String("request_id", r.requestID),
			zap.Strings("tool_ids", r.referencedToolIDs))
		r.sink.Notice(missingTableNotice)
	}

	if list := r.citations.list(); len(list) > 0 {
		r.sink.Citations(list)
	}
	if r.unknownEvents > 0 {
		r.logger.Debug("stream carried unrecognized event kinds",
			zap.String("request_id", r.requestID),
			zap.Int("count", r.unknownEvents))
	}
	r.sink.Done()
}

// rewriteCitations resolves completed cite markers in every text slot.
// Markers were streamed raw because a tag can straddle delta
// boundaries; by now every complete tag can be numbered.
func (r *Reassembler) rewriteCitations() {
	for _, rec := range r.records {
		if rec.kind != contentText {
			continue
		}
		buf := r.buffers[rec.key]
		if buf == "" || !needsCitationPass(buf) {
			continue
		}
		processed := r.citations.processText(buf)
		if processed != buf {
			r.buffers[rec.key] = processed
			r.sink.Text(rec.key, processed)
		}
	}
}

// Failed reports whether the stream ended with an error event.
func (r *Reassembler) Failed() bool {
	return r.failed
}

// MessageID returns the vendor-assigned message id from the metadata
// event, or zero if none arrived.
func (r *Reassembler) MessageID() int64 {
	return r.messageID
}

// ParentID returns the vendor-assigned parent message id from the
// metadata event.
func (r *Reassembler) ParentID() int64 {
	return r.parentID
}

// Text returns the accumulated answer text across slots, in stream order.
func (r *Reassembler) Text() string {
	var out string
	for _, rec := range r.records {
		if rec.kind != contentText {
			continue
		}
		if buf := r.buffers[rec.key]; buf != "" {
			if out != "" {
				out += "\n\n"
			}
			out += buf
		}
	}
	return out
}

// Message assembles the reassembled turn into a persistable assistant
// message for the given thread. Content items appear in stream order.
func (r *Reassembler) Message(threadID int64) *thread.Message {
	var content []thread.ContentItem
	for _, rec := range r.records {
		switch rec.kind {
		case contentText:
			if text := r.buffers[rec.key]; text != "" {
				content = append(content, thread.ContentItem{Type: thread.ContentText, Text: text})
			}
		case contentTable:
			content = append(content, thread.ContentItem{Type: thread.ContentTable, Table: r.tables[rec.key]})
		case contentChart:
			content = append(content, thread.ContentItem{Type: thread.ContentChart, Chart: &thread.Chart{Spec: r.charts[rec.key]}})
		}
	}

	id := uuid.NewString()
	if r.messageID != 0 {
		id = strconv.FormatInt(r.messageID, 10)
	}

	return &thread.Message{
		ID:              id,
		ThreadID:        threadID,
		VendorMessageID: r.messageID,
		RequestID:       r.requestID,
		Role:            thread.RoleAssistant,
		CreatedAt:       time.Now().UTC(),
		Content:         content,
		Citations:       r.citations.list(),
	}
}

// toolDetail extracts a short human-readable summary from a tool
// invocation's input.
func toolDetail(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	if q, ok := input["query"].(string); ok && q != "" {
		return truncate(q, 100)
	}
	if q, ok := input["sql"].(string); ok && q != "" {
		return truncate(q, 100)
	}
	if refs, ok := input["reference_vqrs"].([]any); ok {
		for _, ref := range refs {
			m, ok := ref.(map[string]any)
			if !ok {
				continue
			}
			if q, ok := m["sql"].(string); ok && q != "" {
				return truncate(q, 100)
			}
		}
	}
	if term, ok := input["search_term"].(string); ok && term != "" {
		return truncate(term, 50)
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
