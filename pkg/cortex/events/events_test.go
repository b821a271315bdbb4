package events_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frostpeakco/floe/pkg/cortex/events"
	"github.com/frostpeakco/floe/pkg/sse"
)

func parse(eventType, data string) *events.Event {
	ev, err := events.Parse(&sse.Event{Type: eventType, Data: data})
	Expect(err).NotTo(HaveOccurred())
	return ev
}

var _ = Describe("Parse", func() {
	It("parses status events", func() {
		ev := parse("response.status", `{"message":"Planning next steps","status":"planning"}`)
		Expect(ev.Kind).To(Equal(events.KindStatus))
		Expect(ev.Status.Message).To(Equal("Planning next steps"))
		Expect(ev.Status.Reevaluating()).To(BeFalse())
	})

	It("recognizes re-evaluation statuses", func() {
		ev := parse("response.status", `{"message":"Reevaluating the plan","status":"reevaluating_plan"}`)
		Expect(ev.Status.Reevaluating()).To(BeTrue())
	})

	It("parses text deltas", func() {
		ev := parse("response.text.delta", `{"content_index":2,"text":"partial"}`)
		Expect(ev.Kind).To(Equal(events.KindTextDelta))
		Expect(ev.TextDelta.ContentIndex).To(Equal(2))
		Expect(ev.TextDelta.Text).To(Equal("partial"))
	})

	It("defaults missing delta fields to zero values", func() {
		ev := parse("response.text.delta", `{}`)
		Expect(ev.TextDelta.ContentIndex).To(Equal(0))
		Expect(ev.TextDelta.Text).To(BeEmpty())
	})

	It("parses annotations", func() {
		ev := parse("response.text.annotation", `{
			"content_index": 0,
			"annotation_index": 1,
			"annotation": {
				"search_result_id": "cs_abc123",
				"doc_title": "Q3 Revenue Report",
				"doc_id": "doc_9",
				"type": "cortex_search_citation"
			}
		}`)
		Expect(ev.Kind).To(Equal(events.KindTextAnnotation))
		Expect(ev.Annotation.Annotation.SearchResultID).To(Equal("cs_abc123"))
		Expect(ev.Annotation.Annotation.Valid()).To(BeTrue())
	})

	It("rejects annotations without an id or title", func() {
		ev := parse("response.text.annotation", `{"annotation":{"doc_title":"orphan"}}`)
		Expect(ev.Annotation.Annotation.Valid()).To(BeFalse())
	})

	It("parses thinking deltas", func() {
		ev := parse("response.thinking.delta", `{"content_index":1,"text":"hmm"}`)
		Expect(ev.Kind).To(Equal(events.KindThinkingDelta))
		Expect(ev.ThinkingDelta.Text).To(Equal("hmm"))
	})

	It("parses tool use events", func() {
		ev := parse("response.tool_use", `{
			"content_index": 0,
			"tool_use_id": "tu_1",
			"name": "cortex_analyst",
			"input": {"query": "total revenue by region"}
		}`)
		Expect(ev.Kind).To(Equal(events.KindToolUse))
		Expect(ev.ToolUse.Name).To(Equal("cortex_analyst"))
		Expect(ev.ToolUse.Input).To(HaveKeyWithValue("query", "total revenue by region"))
	})

	It("parses tables with Snowflake SQL API metadata field names", func() {
		ev := parse("response.table", `{
			"content_index": 3,
			"result_set": {
				"data": [["north", 100], ["south", 200]],
				"resultSetMetaData": {
					"rowType": [{"name": "REGION", "type": "TEXT"}, {"name": "REVENUE", "type": "FIXED"}]
				}
			}
		}`)
		Expect(ev.Kind).To(Equal(events.KindTable))
		Expect(ev.Table.ResultSet.Data).To(HaveLen(2))
		Expect(ev.Table.ResultSet.Columns()).To(Equal([]string{"REGION", "REVENUE"}))
		Expect(ev.Table.ResultSet.Empty()).To(BeFalse())
	})

	It("parses metadata with numeric ids", func() {
		ev := parse("metadata", `{"metadata":{"message_id":42,"parent_id":7,"thread_id":1001}}`)
		Expect(ev.Kind).To(Equal(events.KindMetadata))
		Expect(ev.Metadata.MessageID).To(Equal(int64(42)))
		Expect(ev.Metadata.ParentID).To(Equal(int64(7)))
		Expect(ev.Metadata.ThreadID).To(Equal("1001"))
	})

	It("parses metadata with string ids", func() {
		ev := parse("metadata", `{"metadata":{"message_id":"42","thread_id":"1001"}}`)
		Expect(ev.Metadata.MessageID).To(Equal(int64(42)))
		Expect(ev.Metadata.ThreadID).To(Equal("1001"))
	})

	It("parses error events", func() {
		ev := parse("error", `{"code":"390112","message":"token expired"}`)
		Expect(ev.Kind).To(Equal(events.KindError))
		Expect(ev.Error.Code).To(Equal("390112"))
		Expect(ev.Terminal()).To(BeTrue())
	})

	It("treats done events as terminal", func() {
		ev := parse("response.done", `{}`)
		Expect(ev.Kind).To(Equal(events.KindDone))
		Expect(ev.Terminal()).To(BeTrue())
	})

	It("tolerates events with no payload", func() {
		ev := parse("response.done", "")
		Expect(ev.Kind).To(Equal(events.KindDone))
	})

	It("preserves unknown event types", func() {
		ev := parse("response.future_thing", `{"x":1}`)
		Expect(ev.Kind).To(Equal(events.KindUnknown))
		Expect(ev.SSEType).To(Equal("response.future_thing"))
		Expect(string(ev.Raw)).To(Equal(`{"x":1}`))
	})

	It("returns an error for malformed payloads", func() {
		_, err := events.Parse(&sse.Event{Type: "response.text.delta", Data: `{not json`})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ToolResult", func() {
	It("extracts citations from content", func() {
		ev := parse("response.tool_result", `{
			"content_index": 0,
			"tool_use_id": "tu_1",
			"name": "cortex_search",
			"status": "success",
			"content": [
				{"id": "cs_1", "doc_id": "d1", "doc_title": "Sales Playbook", "source_id": 3},
				{"id": "not_a_citation", "doc_id": "d2", "doc_title": "Ignored"},
				{"id": "cs_2", "doc_title": "Missing doc id"}
			]
		}`)

		cites := ev.ToolResult.Citations()
		Expect(cites).To(HaveLen(1))
		Expect(cites[0].ID).To(Equal("cs_1"))
		Expect(cites[0].DocTitle).To(Equal("Sales Playbook"))
	})

	It("extracts text and sql from json content", func() {
		ev := parse("response.tool_result", `{
			"name": "cortex_analyst",
			"content": [
				{"type": "json", "json": {"text": "Revenue by region", "sql": "SELECT region, SUM(rev) FROM t GROUP BY 1"}}
			]
		}`)

		Expect(ev.ToolResult.TextContent()).To(Equal("Revenue by region"))
		Expect(ev.ToolResult.SQL()).To(ContainSubstring("SELECT region"))
	})

	It("falls back to the nested data envelope for content", func() {
		ev := parse("response.tool_result", `{
			"name": "cortex_search",
			"data": {"content": [{"id": "cs_9", "doc_id": "d9", "doc_title": "Nested"}]}
		}`)

		Expect(ev.ToolResult.Citations()).To(HaveLen(1))
	})

	It("reports failed executions case-insensitively", func() {
		ev := parse("response.tool_result", `{"status":"Error"}`)
		Expect(ev.ToolResult.Failed()).To(BeTrue())
	})

	It("extracts an embedded result set from json content", func() {
		ev := parse("response.tool_result", `{
			"content_index": 1,
			"name": "cortex_analyst",
			"content": [
				{"type": "json", "json": {
					"sql": "SELECT region, SUM(rev) FROM t GROUP BY 1",
					"data": [["north", 100], ["south", 200]],
					"resultSetMetaData": {"rowType": [{"name": "REGION", "type": "text"}, {"name": "REVENUE", "type": "fixed"}]}
				}}
			]
		}`)

		rs := ev.ToolResult.ResultSet()
		Expect(rs).NotTo(BeNil())
		Expect(rs.Columns()).To(Equal([]string{"REGION", "REVENUE"}))
		Expect(rs.Data).To(HaveLen(2))
		Expect(rs.Data[0][0]).To(Equal("north"))
	})

	It("returns no result set without column metadata", func() {
		ev := parse("response.tool_result", `{
			"name": "cortex_analyst",
			"content": [{"type": "json", "json": {"sql": "SELECT 1", "data": [[1]]}}]
		}`)

		Expect(ev.ToolResult.ResultSet()).To(BeNil())
	})

	It("returns no result set for an empty payload", func() {
		ev := parse("response.tool_result", `{
			"name": "cortex_analyst",
			"content": [{"type": "json", "json": {"data": [], "resultSetMetaData": {"rowType": []}}}]
		}`)

		Expect(ev.ToolResult.ResultSet()).To(BeNil())
	})
})

var _ = Describe("Chart", func() {
	It("returns a flat spec directly", func() {
		ev := parse("response.chart", `{"content_index":0,"chart_spec":"{\"mark\":\"bar\"}"}`)
		spec, err := ev.Chart.Spec()
		Expect(err).NotTo(HaveOccurred())
		Expect(spec).To(HaveKeyWithValue("mark", "bar"))
	})

	It("unwraps a nested charts envelope with object entries", func() {
		ev := parse("response.chart", `{"chart_spec":"{\"charts\":[{\"mark\":\"line\"}]}"}`)
		spec, err := ev.Chart.Spec()
		Expect(err).NotTo(HaveOccurred())
		Expect(spec).To(HaveKeyWithValue("mark", "line"))
	})

	It("unwraps a nested charts envelope with string entries", func() {
		ev := parse("response.chart", `{"chart_spec":"{\"charts\":[\"{\\\"mark\\\":\\\"point\\\"}\"]}"}`)
		spec, err := ev.Chart.Spec()
		Expect(err).NotTo(HaveOccurred())
		Expect(spec).To(HaveKeyWithValue("mark", "point"))
	})

	It("errors on an unparseable spec", func() {
		ev := parse("response.chart", `{"chart_spec":"not json"}`)
		_, err := ev.Chart.Spec()
		Expect(err).To(HaveOccurred())
	})
})
