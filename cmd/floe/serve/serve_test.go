package servecmder

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frostpeakco/floe/pkg/config"
	"github.com/frostpeakco/floe/pkg/eventstream/kafka"
	"github.com/frostpeakco/floe/pkg/eventstream/nop"
	"github.com/frostpeakco/floe/pkg/logger"
	"github.com/frostpeakco/floe/pkg/thread/inmemory"
	"github.com/frostpeakco/floe/pkg/thread/sqlite"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("has --listen flag with shorthand and default", func() {
		cmd := NewServeCmd()
		flag := cmd.Flags().Lookup("listen")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("l"))
		Expect(flag.DefValue).To(Equal(":8080"))
	})

	It("has --sqlite flag", func() {
		cmd := NewServeCmd()
		flag := cmd.Flags().Lookup("sqlite")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("s"))
	})

	It("has event stream flags", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("event-stream-provider")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("event-stream-brokers")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("event-stream-topic")).NotTo(BeNil())
	})
})

var _ = Describe("store selection", func() {
	newCommander := func(cfg *config.Config) *ServeCommander {
		return &ServeCommander{cfg: cfg, logger: logger.Nop()}
	}

	It("uses the in-memory store when no sqlite path is set", func() {
		cmder := newCommander(config.NewDefaultConfig())

		store, err := cmder.createStore()
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		Expect(store).To(BeAssignableToTypeOf(&inmemory.Store{}))
	})

	It("uses the sqlite store when a path is configured", func() {
		tmpDir, err := os.MkdirTemp("", "floe-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(tmpDir)

		cfg := config.NewDefaultConfig()
		cfg.Storage.SQLitePath = filepath.Join(tmpDir, "threads.db")
		cmder := newCommander(cfg)

		store, err := cmder.createStore()
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		Expect(store).To(BeAssignableToTypeOf(&sqlite.Store{}))
	})
})

var _ = Describe("publisher selection", func() {
	newCommander := func(cfg *config.Config) *ServeCommander {
		return &ServeCommander{cfg: cfg, logger: logger.Nop()}
	}

	It("defaults to the nop publisher", func() {
		cmder := newCommander(config.NewDefaultConfig())

		publisher, err := cmder.createPublisher()
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a kafka publisher when configured", func() {
		cfg := config.NewDefaultConfig()
		cfg.EventStream.Provider = "kafka"
		cfg.EventStream.Brokers = "localhost:9092, localhost:9093"
		cmder := newCommander(cfg)

		publisher, err := cmder.createPublisher()
		Expect(err).NotTo(HaveOccurred())
		defer publisher.Close()

		Expect(publisher).To(BeAssignableToTypeOf(&kafka.Publisher{}))
	})

	It("rejects kafka without brokers", func() {
		cfg := config.NewDefaultConfig()
		cfg.EventStream.Provider = "kafka"
		cmder := newCommander(cfg)

		_, err := cmder.createPublisher()
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		cfg := config.NewDefaultConfig()
		cfg.EventStream.Provider = "carrier-pigeon"
		cmder := newCommander(cfg)

		_, err := cmder.createPublisher()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("carrier-pigeon"))
	})
})
