package cortex_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frostpeakco/floe/pkg/auth"
	"github.com/frostpeakco/floe/pkg/cortex"
	"github.com/frostpeakco/floe/pkg/cortex/events"
)

func newTestClient(upstream *httptest.Server) *cortex.Client {
	client, err := cortex.NewClient(cortex.ClientConfig{
		BaseURL: upstream.URL,
		Tokens:  auth.NewStatic("test-token", auth.TypePAT),
	})
	Expect(err).NotTo(HaveOccurred())
	return client
}

var _ = Describe("Client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("authentication headers", func() {
		It("sends the bearer token and token type", func() {
			var gotAuth, gotType string
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotType = r.Header.Get("X-Snowflake-Authorization-Token-Type")
				json.NewEncoder(w).Encode([]cortex.AgentSummary{})
			}))
			defer upstream.Close()

			_, err := newTestClient(upstream).ListAgents(ctx, "DB", "SCH")
			Expect(err).NotTo(HaveOccurred())
			Expect(gotAuth).To(Equal("Bearer test-token"))
			Expect(gotType).To(Equal(auth.TypePAT))
		})
	})

	Describe("ListAgents", func() {
		It("lists agents in a schema", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/databases/SALES/schemas/PUBLIC/agents"))
				json.NewEncoder(w).Encode([]cortex.AgentSummary{
					{Name: "REVENUE_AGENT", Owner: "ADMIN"},
				})
			}))
			defer upstream.Close()

			agents, err := newTestClient(upstream).ListAgents(ctx, "SALES", "PUBLIC")
			Expect(err).NotTo(HaveOccurred())
			Expect(agents).To(HaveLen(1))
			Expect(agents[0].Name).To(Equal("REVENUE_AGENT"))
		})

		It("surfaces API errors with status and body", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "access denied", http.StatusForbidden)
			}))
			defer upstream.Close()

			_, err := newTestClient(upstream).ListAgents(ctx, "SALES", "PUBLIC")
			Expect(err).To(MatchError(ContainSubstring("status 403")))
			Expect(err).To(MatchError(ContainSubstring("access denied")))
		})
	})

	Describe("DescribeAgent", func() {
		It("parses a string-encoded agent spec", func() {
			spec := map[string]any{
				"models": map[string]any{"orchestration": "claude-4-sonnet"},
				"tools":  []any{map[string]any{"name": "analyst"}},
				"instructions": map[string]any{
					"sample_questions": []any{
						map[string]any{"question": "What was Q3 revenue?"},
						"Show top customers",
					},
				},
			}
			specJSON, err := json.Marshal(spec)
			Expect(err).NotTo(HaveOccurred())

			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/databases/SALES/schemas/PUBLIC/agents/REVENUE_AGENT"))
				json.NewEncoder(w).Encode(map[string]any{
					"name":       "REVENUE_AGENT",
					"owner":      "ADMIN",
					"agent_spec": string(specJSON),
				})
			}))
			defer upstream.Close()

			agent, err := newTestClient(upstream).DescribeAgent(ctx, "SALES", "PUBLIC", "REVENUE_AGENT")
			Expect(err).NotTo(HaveOccurred())
			Expect(agent.QualifiedName()).To(Equal("SALES.PUBLIC.REVENUE_AGENT"))
			Expect(agent.Model).To(Equal("claude-4-sonnet"))
			Expect(agent.ToolCount).To(Equal(1))
			Expect(agent.SampleQuestions).To(Equal([]string{"What was Q3 revenue?", "Show top customers"}))
		})

		It("leaves the model empty when the spec says auto", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"name":       "A",
					"agent_spec": `{"models":{"orchestration":"auto"}}`,
				})
			}))
			defer upstream.Close()

			agent, err := newTestClient(upstream).DescribeAgent(ctx, "DB", "SCH", "A")
			Expect(err).NotTo(HaveOccurred())
			Expect(agent.Model).To(BeEmpty())
		})

		It("tolerates a malformed agent spec", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"name":       "A",
					"agent_spec": "not json at all",
				})
			}))
			defer upstream.Close()

			agent, err := newTestClient(upstream).DescribeAgent(ctx, "DB", "SCH", "A")
			Expect(err).NotTo(HaveOccurred())
			Expect(agent.Spec).To(BeEmpty())
		})
	})

	Describe("threads", func() {
		It("creates a thread with the origin application", func() {
			var gotPayload map[string]string
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal("POST"))
				Expect(r.URL.Path).To(Equal("/cortex/threads"))
				Expect(json.NewDecoder(r.Body).Decode(&gotPayload)).To(Succeed())
				json.NewEncoder(w).Encode(map[string]any{"thread_id": 1001})
			}))
			defer upstream.Close()

			id, err := newTestClient(upstream).CreateThread(ctx, "FloeAgentChat")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(1001)))
			Expect(gotPayload).To(HaveKeyWithValue("origin_application", "FloeAgentChat"))
		})

		It("errors when creation returns no thread id", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{})
			}))
			defer upstream.Close()

			_, err := newTestClient(upstream).CreateThread(ctx, "")
			Expect(err).To(MatchError(ContainSubstring("no thread_id")))
		})

		It("fetches a thread with its messages", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/cortex/threads/1001"))
				Expect(r.URL.Query().Get("page_size")).To(Equal("10"))
				json.NewEncoder(w).Encode(cortex.Thread{
					Metadata: cortex.ThreadMetadata{ThreadID: 1001, ThreadName: "revenue chat"},
					Messages: []cortex.ThreadMessage{
						{MessageID: 5, Role: "assistant"},
						{MessageID: 4, Role: "user"},
						{MessageID: 3, Role: "assistant"},
					},
				})
			}))
			defer upstream.Close()

			thread, err := newTestClient(upstream).GetThread(ctx, 1001, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(thread.Metadata.ThreadName).To(Equal("revenue chat"))
			Expect(thread.Messages).To(HaveLen(3))
		})

		It("deletes a thread", func() {
			var gotMethod, gotPath string
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.Path
				w.WriteHeader(http.StatusOK)
			}))
			defer upstream.Close()

			Expect(newTestClient(upstream).DeleteThread(ctx, 1001)).To(Succeed())
			Expect(gotMethod).To(Equal("DELETE"))
			Expect(gotPath).To(Equal("/cortex/threads/1001"))
		})

		It("filters the thread list by origin application", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Query().Get("origin_application")).To(Equal("FloeAgentChat"))
				json.NewEncoder(w).Encode([]cortex.ThreadMetadata{{ThreadID: 1, ThreadName: "t"}})
			}))
			defer upstream.Close()

			threads, err := newTestClient(upstream).ListThreads(ctx, "FloeAgentChat")
			Expect(err).NotTo(HaveOccurred())
			Expect(threads).To(HaveLen(1))
		})
	})
})

var _ = Describe("Thread", func() {
	Describe("ParentMessageID", func() {
		It("returns the newest assistant message id", func() {
			thread := &cortex.Thread{Messages: []cortex.ThreadMessage{
				{MessageID: 9, Role: "user"},
				{MessageID: 8, Role: "assistant"},
				{MessageID: 7, Role: "assistant"},
			}}
			Expect(thread.ParentMessageID()).To(Equal(int64(8)))
		})

		It("returns 0 when no assistant messages exist", func() {
			thread := &cortex.Thread{Messages: []cortex.ThreadMessage{
				{MessageID: 1, Role: "user"},
			}}
			Expect(thread.ParentMessageID()).To(BeZero())
		})
	})
})

var _ = Describe("Run", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	streamBody := "event: response.text.delta\ndata: {\"content_index\":0,\"text\":\"Hello\"}\n\n" +
		"event: response.done\ndata: {}\n\n"

	It("streams parsed events and captures the request id", func() {
		var gotBody map[string]any
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/databases/SALES/schemas/PUBLIC/agents/REVENUE_AGENT:run"))
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

			w.Header().Set("X-Snowflake-Request-Id", "req-123")
			w.Header().Set("Content-Type", "text/event-stream")
			w.Write([]byte(streamBody))
		}))
		defer upstream.Close()

		stream, err := newTestClient(upstream).Run(ctx, cortex.RunRequest{
			Database:        "SALES",
			Schema:          "PUBLIC",
			Agent:           "REVENUE_AGENT",
			Model:           "claude-4-sonnet",
			ThreadID:        1001,
			ParentMessageID: 8,
			Message:         "What was Q3 revenue?",
		})
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		Expect(stream.RequestID).To(Equal("req-123"))
		Expect(gotBody).To(HaveKeyWithValue("thread_id", float64(1001)))
		Expect(gotBody).To(HaveKeyWithValue("parent_message_id", float64(8)))
		Expect(gotBody).To(HaveKeyWithValue("models", HaveKeyWithValue("orchestration", "claude-4-sonnet")))

		ev, err := stream.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(events.KindTextDelta))
		Expect(ev.TextDelta.Text).To(Equal("Hello"))

		ev, err = stream.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(events.KindDone))

		ev, err = stream.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(BeNil())
	})

	It("generates a local request id when the header is missing", func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(streamBody))
		}))
		defer upstream.Close()

		stream, err := newTestClient(upstream).Run(ctx, cortex.RunRequest{
			Database: "DB", Schema: "SCH", Agent: "A", Model: "m", Message: "hi",
		})
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		Expect(stream.RequestID).NotTo(BeEmpty())
	})

	It("tees the raw stream into the capture writer", func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(streamBody))
		}))
		defer upstream.Close()

		var capture bytes.Buffer
		stream, err := newTestClient(upstream).Run(ctx, cortex.RunRequest{
			Database: "DB", Schema: "SCH", Agent: "A", Model: "m", Message: "hi",
			RawCapture: &capture,
		})
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		for {
			ev, err := stream.Next()
			Expect(err).NotTo(HaveOccurred())
			if ev == nil {
				break
			}
		}

		Expect(capture.String()).To(Equal(streamBody))
	})

	It("returns an API error on failure status", func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "agent not found", http.StatusNotFound)
		}))
		defer upstream.Close()

		_, err := newTestClient(upstream).Run(ctx, cortex.RunRequest{
			Database: "DB", Schema: "SCH", Agent: "A", Model: "m", Message: "hi",
		})
		Expect(err).To(MatchError(ContainSubstring("status 404")))
	})
})
