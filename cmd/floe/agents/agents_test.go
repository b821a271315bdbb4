package agentscmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	agentscmder "github.com/frostpeakco/floe/cmd/floe/agents"
)

var _ = Describe("NewAgentsCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := agentscmder.NewAgentsCmd()
		Expect(cmd.Use).To(Equal("agents"))
	})

	It("has --database and --schema flags", func() {
		cmd := agentscmder.NewAgentsCmd()
		Expect(cmd.Flags().Lookup("database")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("schema")).NotTo(BeNil())
	})

	It("has a describe subcommand", func() {
		cmd := agentscmder.NewAgentsCmd()
		names := make([]string, 0)
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElement("describe"))
	})
})
