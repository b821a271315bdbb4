package floecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	floecmder "github.com/frostpeakco/floe/cmd/floe"
)

var _ = Describe("NewFloeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := floecmder.NewFloeCmd()
		Expect(cmd.Use).To(Equal("floe"))
	})

	It("has persistent --debug and --config-dir flags", func() {
		cmd := floecmder.NewFloeCmd()
		debug := cmd.PersistentFlags().Lookup("debug")
		Expect(debug).NotTo(BeNil())
		Expect(debug.Shorthand).To(Equal("d"))
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("registers all subcommands", func() {
		cmd := floecmder.NewFloeCmd()
		names := make([]string, 0)
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"serve", "chat", "agents", "threads", "auth", "logs", "config", "version",
		))
	})
})
