package tomasulo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/tomasulo"
)

func acceptAll(insts.Op) bool { return true }

func acceptNone(insts.Op) bool { return false }

var _ = Describe("Station", func() {
	var station *tomasulo.Station

	noBus := tomasulo.Broadcast{}

	entry := func(tag tomasulo.Tag, src1, src2 tomasulo.Operand) tomasulo.StationEntry {
		return tomasulo.StationEntry{
			Op:   insts.OpAdd,
			Tag:  tag,
			Src1: src1,
			Src2: src2,
			Src3: tomasulo.ReadyOperand(0),
		}
	}

	BeforeEach(func() {
		station = tomasulo.NewStation(insts.ClassALU, 4)
	})

	It("should refuse dispatch when full", func() {
		for i := 0; i < 4; i++ {
			ok := station.Dispatch(entry(tomasulo.Tag(i),
				tomasulo.ReadyOperand(1), tomasulo.ReadyOperand(2)), noBus)
			Expect(ok).To(BeTrue())
		}
		Expect(station.Full()).To(BeTrue())
		Expect(station.Dispatch(entry(9,
			tomasulo.ReadyOperand(1), tomasulo.ReadyOperand(2)), noBus)).To(BeFalse())
	})

	It("should bypass the same-cycle broadcast at dispatch", func() {
		bus := tomasulo.Broadcast{Valid: true, Tag: 3, Value: 42}
		station.Dispatch(entry(5,
			tomasulo.PendingOperand(3), tomasulo.ReadyOperand(0)), bus)

		bundle, ok := station.SelectIssue(0, acceptAll)
		Expect(ok).To(BeTrue())
		Expect(bundle.Src1).To(Equal(uint64(42)))
	})

	It("should wake pending operands on a snooped broadcast", func() {
		station.Dispatch(entry(5,
			tomasulo.PendingOperand(3), tomasulo.PendingOperand(4)), noBus)

		_, ok := station.SelectIssue(0, acceptAll)
		Expect(ok).To(BeFalse())

		station.Snoop(tomasulo.Broadcast{Valid: true, Tag: 3, Value: 10})
		_, ok = station.SelectIssue(0, acceptAll)
		Expect(ok).To(BeFalse())

		station.Snoop(tomasulo.Broadcast{Valid: true, Tag: 4, Value: 20})
		bundle, ok := station.SelectIssue(0, acceptAll)
		Expect(ok).To(BeTrue())
		Expect(bundle.Src1).To(Equal(uint64(10)))
		Expect(bundle.Src2).To(Equal(uint64(20)))
	})

	It("should treat an immediate as a ready second operand", func() {
		e := entry(5, tomasulo.ReadyOperand(1), tomasulo.PendingOperand(9))
		e.UseImm = true
		e.Imm = 7
		station.Dispatch(e, noBus)

		bundle, ok := station.SelectIssue(0, acceptAll)
		Expect(ok).To(BeTrue())
		Expect(bundle.Imm).To(Equal(int64(7)))
	})

	It("should select the oldest ready entry", func() {
		station.Dispatch(entry(7,
			tomasulo.ReadyOperand(1), tomasulo.ReadyOperand(2)), noBus)
		station.Dispatch(entry(2,
			tomasulo.ReadyOperand(3), tomasulo.ReadyOperand(4)), noBus)

		bundle, ok := station.SelectIssue(0, acceptAll)
		Expect(ok).To(BeTrue())
		Expect(bundle.Tag).To(Equal(tomasulo.Tag(2)))
	})

	It("should free the slot at issue", func() {
		station.Dispatch(entry(1,
			tomasulo.ReadyOperand(1), tomasulo.ReadyOperand(2)), noBus)

		_, ok := station.SelectIssue(0, acceptAll)
		Expect(ok).To(BeTrue())
		Expect(station.Count()).To(BeZero())
	})

	It("should hold entries while the unit refuses", func() {
		station.Dispatch(entry(1,
			tomasulo.ReadyOperand(1), tomasulo.ReadyOperand(2)), noBus)

		_, ok := station.SelectIssue(0, acceptNone)
		Expect(ok).To(BeFalse())
		Expect(station.Count()).To(Equal(1))
	})

	It("should flush only entries younger than the boundary", func() {
		station.Dispatch(entry(2,
			tomasulo.ReadyOperand(1), tomasulo.ReadyOperand(2)), noBus)
		station.Dispatch(entry(6,
			tomasulo.ReadyOperand(1), tomasulo.ReadyOperand(2)), noBus)

		station.FlushYounger(4, 0)

		bundle, ok := station.SelectIssue(0, acceptAll)
		Expect(ok).To(BeTrue())
		Expect(bundle.Tag).To(Equal(tomasulo.Tag(2)))
		Expect(station.Count()).To(BeZero())
	})
})
