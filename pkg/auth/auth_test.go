package auth_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frostpeakco/floe/pkg/auth"
	"github.com/frostpeakco/floe/pkg/config"
)

var _ = Describe("Static", func() {
	It("yields its value and type", func() {
		tok, err := auth.NewStatic("secret", auth.TypePAT).Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Value).To(Equal("secret"))
		Expect(tok.Type).To(Equal(auth.TypePAT))
	})

	It("returns ErrNoToken when empty", func() {
		_, err := auth.NewStatic("", auth.TypePAT).Token()
		Expect(err).To(MatchError(auth.ErrNoToken))
	})
})

var _ = Describe("File", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "auth-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("reads and trims the token from disk", func() {
		path := filepath.Join(tmpDir, "token")
		Expect(os.WriteFile(path, []byte("tok-value\n"), 0o600)).To(Succeed())

		tok, err := auth.NewFile(path, auth.TypeOAuth).Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Value).To(Equal("tok-value"))
		Expect(tok.Type).To(Equal(auth.TypeOAuth))
	})

	It("picks up rotated tokens on each call", func() {
		path := filepath.Join(tmpDir, "token")
		Expect(os.WriteFile(path, []byte("first"), 0o600)).To(Succeed())

		src := auth.NewFile(path, auth.TypeOAuth)
		tok, err := src.Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Value).To(Equal("first"))

		Expect(os.WriteFile(path, []byte("second"), 0o600)).To(Succeed())
		tok, err = src.Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Value).To(Equal("second"))
	})

	It("returns ErrNoToken for a missing file", func() {
		_, err := auth.NewFile(filepath.Join(tmpDir, "nope"), auth.TypeOAuth).Token()
		Expect(err).To(MatchError(auth.ErrNoToken))
	})

	It("returns ErrNoToken for an empty file", func() {
		path := filepath.Join(tmpDir, "token")
		Expect(os.WriteFile(path, []byte("  \n"), 0o600)).To(Succeed())

		_, err := auth.NewFile(path, auth.TypeOAuth).Token()
		Expect(err).To(MatchError(auth.ErrNoToken))
	})
})

var _ = Describe("Chain", func() {
	It("returns the first available token", func() {
		chain := auth.NewChain(
			auth.NewStatic("", auth.TypeOAuth),
			auth.NewStatic("pat-token", auth.TypePAT),
		)

		tok, err := chain.Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Value).To(Equal("pat-token"))
		Expect(tok.Type).To(Equal(auth.TypePAT))
	})

	It("prefers earlier sources", func() {
		chain := auth.NewChain(
			auth.NewStatic("oauth-token", auth.TypeOAuth),
			auth.NewStatic("pat-token", auth.TypePAT),
		)

		tok, err := chain.Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Value).To(Equal("oauth-token"))
	})

	It("returns ErrNoToken when exhausted", func() {
		chain := auth.NewChain(auth.NewStatic("", auth.TypeOAuth))
		_, err := chain.Token()
		Expect(err).To(MatchError(auth.ErrNoToken))
	})
})

var _ = Describe("FromConfig", func() {
	It("prefers the configured OAuth token over the PAT", func() {
		cfg := config.NewDefaultConfig()
		cfg.Snowflake.OAuthToken = "oauth-token"
		cfg.Snowflake.PAT = "pat-token"

		tok, err := auth.FromConfig(cfg).Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Value).To(Equal("oauth-token"))
		Expect(tok.Type).To(Equal(auth.TypeOAuth))
	})

	It("falls back to the PAT", func() {
		cfg := config.NewDefaultConfig()
		cfg.Snowflake.PAT = "pat-token"

		tok, err := auth.FromConfig(cfg).Token()
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Value).To(Equal("pat-token"))
		Expect(tok.Type).To(Equal(auth.TypePAT))
	})
})
