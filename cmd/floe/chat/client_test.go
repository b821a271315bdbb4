package chatcmder

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frostpeakco/floe/pkg/logger"
)

const turnFrames = `event: render
data: {"op":"status","message":"Planning the next steps"}

event: render
data: {"op":"text","key":{"request_id":"req-9","index":0},"text":"Revenue grew "}

event: render
data: {"op":"text","key":{"request_id":"req-9","index":0},"text":"Revenue grew <cite>cs_abc</cite>."}

event: render
data: {"op":"text","key":{"request_id":"req-9","index":0},"text":"Revenue grew [1]."}

event: render
data: {"op":"citations","citations":[{"number":1,"search_result_id":"cs_abc","doc_title":"Q3 Report"}]}

event: render
data: {"op":"done"}

`

var _ = Describe("serverClient", func() {
	var (
		srv    *httptest.Server
		client *serverClient
	)

	newTestHandler := func() http.Handler {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/threads", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"thread_id": 7}`)
		})
		mux.HandleFunc("POST /api/threads/7/messages", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, turnFrames)
		})
		mux.HandleFunc("POST /api/threads/404/messages", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":"failed to start agent run"}`)
		})
		return mux
	}

	BeforeEach(func() {
		srv = httptest.NewServer(newTestHandler())
		client = newServerClient(srv.URL, logger.Nop())
	})

	AfterEach(func() {
		srv.Close()
	})

	It("creates threads through the server", func() {
		threadID, err := client.createThread()
		Expect(err).NotTo(HaveOccurred())
		Expect(threadID).To(Equal(int64(7)))
	})

	It("strips a trailing slash from the target", func() {
		client = newServerClient(srv.URL+"/", logger.Nop())
		_, err := client.createThread()
		Expect(err).NotTo(HaveOccurred())
	})

	It("streams a turn's render operations into the renderer", func() {
		out := &bytes.Buffer{}
		renderer := newTurnRenderer(out, false)

		err := client.runTurn(7, "how did revenue do?", "REVENUE_AGENT", "claude-4-sonnet", renderer)
		Expect(err).NotTo(HaveOccurred())

		Expect(out.String()).To(ContainSubstring("Planning the next steps"))
		Expect(out.String()).To(ContainSubstring("Revenue grew "))
		Expect(out.String()).To(ContainSubstring("Revenue grew [1]."))
		Expect(out.String()).To(ContainSubstring("Q3 Report"))
	})

	It("surfaces server errors when a turn cannot start", func() {
		out := &bytes.Buffer{}
		renderer := newTurnRenderer(out, false)

		err := client.runTurn(404, "hi", "REVENUE_AGENT", "claude-4-sonnet", renderer)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("failed to start agent run"))
		Expect(err.Error()).To(ContainSubstring("502"))
	})
})

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("has --server-target flag with shorthand", func() {
		cmd := NewChatCmd()
		flag := cmd.Flags().Lookup("server-target")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("t"))
		Expect(flag.DefValue).To(Equal("http://localhost:8080"))
	})

	It("has --agent and --model flags", func() {
		cmd := NewChatCmd()
		Expect(cmd.Flags().Lookup("agent")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("model")).NotTo(BeNil())
	})

	It("has --new and --thread flags", func() {
		cmd := NewChatCmd()
		Expect(cmd.Flags().Lookup("new")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("thread")).NotTo(BeNil())
	})
})
