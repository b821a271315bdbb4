package threadscmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	threadscmder "github.com/frostpeakco/floe/cmd/floe/threads"
)

var _ = Describe("NewThreadsCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := threadscmder.NewThreadsCmd()
		Expect(cmd.Use).To(Equal("threads"))
	})

	It("has create, rename, and delete subcommands", func() {
		cmd := threadscmder.NewThreadsCmd()
		names := make([]string, 0)
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("create", "rename", "delete"))
	})

	It("rejects a non-numeric thread id on delete", func() {
		cmd := threadscmder.NewThreadsCmd()
		cmd.PersistentFlags().Bool("debug", false, "")
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.SetArgs([]string{"delete", "not-a-number"})
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true

		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("invalid thread id"))
	})
})
