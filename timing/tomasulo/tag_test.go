package tomasulo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/twosigma/frost-sub005/timing/tomasulo"
)

var _ = Describe("Tag age", func() {
	It("should measure age zero at the head", func() {
		Expect(tomasulo.AgeOf(5, 5)).To(Equal(uint8(0)))
	})

	It("should measure distance from the head", func() {
		Expect(tomasulo.AgeOf(7, 5)).To(Equal(uint8(2)))
	})

	It("should wrap around the tag space", func() {
		Expect(tomasulo.AgeOf(1, 30)).To(Equal(uint8(3)))
	})

	It("should order tags by age, not numeric value", func() {
		// Head at 30: tag 1 wrapped and is younger than tag 31.
		Expect(tomasulo.YoungerThan(1, 31, 30)).To(BeTrue())
		Expect(tomasulo.YoungerThan(31, 1, 30)).To(BeFalse())
	})

	It("should not consider a tag younger than itself", func() {
		Expect(tomasulo.YoungerThan(4, 4, 0)).To(BeFalse())
	})

	It("should order straightforward tags after the head", func() {
		Expect(tomasulo.YoungerThan(9, 3, 0)).To(BeTrue())
	})
})
