package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/twosigma/frost-sub005/timing/latency"
)

var _ = Describe("Config", func() {
	It("should validate the defaults", func() {
		Expect(latency.DefaultConfig().Validate()).To(Succeed())
	})

	It("should reject a zero latency", func() {
		cfg := latency.DefaultConfig()
		cfg.DivLatency = 0
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should round-trip through a file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "latency.json")

		cfg := latency.DefaultConfig()
		cfg.MulLatency = 7
		Expect(cfg.SaveConfig(path)).To(Succeed())

		loaded, err := latency.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(cfg))
	})

	It("should keep defaults for fields absent from the file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "latency.json")
		Expect(os.WriteFile(path, []byte(`{"mul_latency": 9}`), 0644)).To(Succeed())

		loaded, err := latency.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.MulLatency).To(Equal(uint64(9)))
		Expect(loaded.DivLatency).To(Equal(latency.DefaultConfig().DivLatency))
	})

	It("should report a missing file", func() {
		_, err := latency.LoadConfig("/nonexistent/latency.json")
		Expect(err).To(HaveOccurred())
	})

	It("should report malformed JSON", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "latency.json")
		Expect(os.WriteFile(path, []byte(`{not json`), 0644)).To(Succeed())

		_, err := latency.LoadConfig(path)
		Expect(err).To(HaveOccurred())
	})

	It("should clone independently", func() {
		cfg := latency.DefaultConfig()
		clone := cfg.Clone()
		clone.ALULatency = 99

		Expect(cfg.ALULatency).To(Equal(uint64(1)))
	})
})
