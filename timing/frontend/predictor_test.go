package frontend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/twosigma/frost-sub005/timing/frontend"
)

var _ = Describe("Predictor", func() {
	var p *frontend.Predictor

	BeforeEach(func() {
		p = frontend.NewPredictor(frontend.PredictorConfig{
			BHTSize: 16,
			BTBSize: 8,
		})
	})

	It("should initially predict taken with no known target", func() {
		pred := p.Predict(0x1000)
		Expect(pred.Taken).To(BeTrue())
		Expect(pred.TargetKnown).To(BeFalse())
	})

	It("should learn an always-taken branch and its target", func() {
		for i := 0; i < 4; i++ {
			p.Update(0x1000, true, 0x2000)
		}

		pred := p.Predict(0x1000)
		Expect(pred.Taken).To(BeTrue())
		Expect(pred.TargetKnown).To(BeTrue())
		Expect(pred.Target).To(Equal(uint64(0x2000)))
	})

	It("should learn a never-taken branch", func() {
		for i := 0; i < 4; i++ {
			p.Update(0x1000, false, 0)
		}
		Expect(p.Predict(0x1000).Taken).To(BeFalse())
	})

	It("should need two mispredictions to flip a saturated counter", func() {
		for i := 0; i < 4; i++ {
			p.Update(0x1000, true, 0x2000)
		}

		p.Update(0x1000, false, 0)
		Expect(p.Predict(0x1000).Taken).To(BeTrue())

		p.Update(0x1000, false, 0)
		Expect(p.Predict(0x1000).Taken).To(BeFalse())
	})

	It("should only return a BTB target for the owning PC", func() {
		p.Update(0x1000, true, 0x2000)

		// A different PC aliasing the same BTB set must not see the
		// stale target.
		pred := p.Predict(0x1000 + 8*4)
		Expect(pred.TargetKnown).To(BeFalse())
	})

	It("should track accuracy", func() {
		p.Update(0x1000, true, 0x2000)
		p.Update(0x1000, true, 0x2000)
		p.Update(0x1000, false, 0)

		stats := p.Stats()
		Expect(stats.Correct).To(Equal(uint64(2)))
		Expect(stats.Mispredictions).To(Equal(uint64(1)))
	})

	It("should reset to the initial bias", func() {
		for i := 0; i < 4; i++ {
			p.Update(0x1000, false, 0)
		}
		p.Reset()

		pred := p.Predict(0x1000)
		Expect(pred.Taken).To(BeTrue())
		Expect(pred.TargetKnown).To(BeFalse())
	})
})
