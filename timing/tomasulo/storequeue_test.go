package tomasulo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/tomasulo"
)

var _ = Describe("StoreQueue", func() {
	var sq *tomasulo.StoreQueue

	noBus := tomasulo.Broadcast{}

	BeforeEach(func() {
		sq = tomasulo.NewStoreQueue()
	})

	alloc := func(tag tomasulo.Tag, size insts.MemSize, data tomasulo.Operand) {
		Expect(sq.Alloc(tag, size, data, noBus)).To(BeTrue())
	}

	It("should refuse allocation when full", func() {
		for i := 0; i < tomasulo.StoreQueueDepth; i++ {
			alloc(tomasulo.Tag(i), insts.SizeDouble, tomasulo.ReadyOperand(0))
		}
		Expect(sq.Full()).To(BeTrue())
		Expect(sq.Alloc(9, insts.SizeDouble, tomasulo.ReadyOperand(0), noBus)).To(BeFalse())
	})

	It("should capture data from the CDB", func() {
		alloc(1, insts.SizeDouble, tomasulo.PendingOperand(0))
		sq.UpdateAddress(1, 0x100)
		Expect(sq.Ready(1)).To(BeFalse())

		sq.Snoop(tomasulo.Broadcast{Valid: true, Tag: 0, Value: 77})
		Expect(sq.Ready(1)).To(BeTrue())
	})

	It("should bypass the same-cycle broadcast at allocation", func() {
		bus := tomasulo.Broadcast{Valid: true, Tag: 0, Value: 77}
		Expect(sq.Alloc(1, insts.SizeDouble, tomasulo.PendingOperand(0), bus)).To(BeTrue())
		sq.UpdateAddress(1, 0x100)
		Expect(sq.Ready(1)).To(BeTrue())
	})

	Describe("Disambiguate", func() {
		It("should block a load while an older address is unknown", func() {
			alloc(1, insts.SizeDouble, tomasulo.ReadyOperand(5))

			d := sq.Disambiguate(3, 0x100, insts.SizeDouble, 0)
			Expect(d.AllOlderKnown).To(BeFalse())
		})

		It("should ignore younger stores entirely", func() {
			alloc(5, insts.SizeDouble, tomasulo.ReadyOperand(5))

			d := sq.Disambiguate(3, 0x100, insts.SizeDouble, 0)
			Expect(d.AllOlderKnown).To(BeTrue())
			Expect(d.Match).To(BeFalse())
		})

		It("should clear a load with no overlapping older store", func() {
			alloc(1, insts.SizeDouble, tomasulo.ReadyOperand(5))
			sq.UpdateAddress(1, 0x200)

			d := sq.Disambiguate(3, 0x100, insts.SizeDouble, 0)
			Expect(d.AllOlderKnown).To(BeTrue())
			Expect(d.Match).To(BeFalse())
		})

		It("should forward from a covering store with ready data", func() {
			alloc(1, insts.SizeDouble, tomasulo.ReadyOperand(0x1122334455667788))
			sq.UpdateAddress(1, 0x100)

			d := sq.Disambiguate(3, 0x100, insts.SizeDouble, 0)
			Expect(d.CanForward).To(BeTrue())
			Expect(d.Data).To(Equal(uint64(0x1122334455667788)))
		})

		It("should shift and mask a narrower forwarded load", func() {
			alloc(1, insts.SizeDouble, tomasulo.ReadyOperand(0x1122334455667788))
			sq.UpdateAddress(1, 0x100)

			d := sq.Disambiguate(3, 0x104, insts.SizeWord, 0)
			Expect(d.CanForward).To(BeTrue())
			Expect(d.Data).To(Equal(uint64(0x11223344)))
		})

		It("should match without forwarding when the store data is pending", func() {
			alloc(1, insts.SizeDouble, tomasulo.PendingOperand(0))
			sq.UpdateAddress(1, 0x100)

			d := sq.Disambiguate(3, 0x100, insts.SizeDouble, 0)
			Expect(d.Match).To(BeTrue())
			Expect(d.CanForward).To(BeFalse())
		})

		It("should match without forwarding on a partial overlap", func() {
			alloc(1, insts.SizeWord, tomasulo.ReadyOperand(5))
			sq.UpdateAddress(1, 0x100)

			d := sq.Disambiguate(3, 0x100, insts.SizeDouble, 0)
			Expect(d.Match).To(BeTrue())
			Expect(d.CanForward).To(BeFalse())
		})

		It("should forward from the youngest overlapping older store", func() {
			alloc(1, insts.SizeDouble, tomasulo.ReadyOperand(111))
			sq.UpdateAddress(1, 0x100)
			alloc(2, insts.SizeDouble, tomasulo.ReadyOperand(222))
			sq.UpdateAddress(2, 0x100)

			d := sq.Disambiguate(5, 0x100, insts.SizeDouble, 0)
			Expect(d.CanForward).To(BeTrue())
			Expect(d.Data).To(Equal(uint64(222)))
		})
	})

	Describe("Retire", func() {
		It("should release the head store with its access", func() {
			alloc(1, insts.SizeWord, tomasulo.ReadyOperand(42))
			sq.UpdateAddress(1, 0x100)

			addr, size, data, ok := sq.Retire(1)
			Expect(ok).To(BeTrue())
			Expect(addr).To(Equal(uint64(0x100)))
			Expect(size).To(Equal(insts.SizeWord))
			Expect(data).To(Equal(uint64(42)))
			Expect(sq.Empty()).To(BeTrue())
		})

		It("should refuse to retire out of order", func() {
			alloc(1, insts.SizeWord, tomasulo.ReadyOperand(1))
			sq.UpdateAddress(1, 0x100)
			alloc(2, insts.SizeWord, tomasulo.ReadyOperand(2))
			sq.UpdateAddress(2, 0x200)

			_, _, _, ok := sq.Retire(2)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("flush", func() {
		It("should drop younger stores and reuse their slots", func() {
			alloc(1, insts.SizeWord, tomasulo.ReadyOperand(1))
			alloc(5, insts.SizeWord, tomasulo.ReadyOperand(2))
			alloc(6, insts.SizeWord, tomasulo.ReadyOperand(3))

			sq.FlushYounger(2, 0)
			Expect(sq.Count()).To(Equal(1))

			for i := 0; i < tomasulo.StoreQueueDepth-1; i++ {
				alloc(tomasulo.Tag(10+i), insts.SizeWord, tomasulo.ReadyOperand(0))
			}
			Expect(sq.Full()).To(BeTrue())
		})

		It("should empty on a full flush", func() {
			alloc(1, insts.SizeWord, tomasulo.ReadyOperand(1))
			sq.FlushAll()
			Expect(sq.Empty()).To(BeTrue())
		})
	})
})
