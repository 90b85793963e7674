package tomasulo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/twosigma/frost-sub005/timing/tomasulo"
)

var _ = Describe("Arbiter", func() {
	var (
		arbiter  *tomasulo.Arbiter
		requests [tomasulo.NumFUs]tomasulo.Completion
	)

	BeforeEach(func() {
		arbiter = tomasulo.NewArbiter()
		requests = [tomasulo.NumFUs]tomasulo.Completion{}
	})

	It("should grant nothing when no producer requests", func() {
		_, _, any := arbiter.Arbitrate(&requests)
		Expect(any).To(BeFalse())
	})

	It("should grant a lone requester", func() {
		requests[tomasulo.FUALU] = tomasulo.Completion{Valid: true, Tag: 3, Value: 7}

		winner, grants, any := arbiter.Arbitrate(&requests)
		Expect(any).To(BeTrue())
		Expect(winner.Tag).To(Equal(tomasulo.Tag(3)))
		Expect(grants[tomasulo.FUALU]).To(BeTrue())
	})

	It("should prefer the long-latency producers", func() {
		requests[tomasulo.FUALU] = tomasulo.Completion{Valid: true, Tag: 1}
		requests[tomasulo.FUMul] = tomasulo.Completion{Valid: true, Tag: 2}
		requests[tomasulo.FUFPDiv] = tomasulo.Completion{Valid: true, Tag: 3}

		winner, grants, _ := arbiter.Arbitrate(&requests)
		Expect(winner.Tag).To(Equal(tomasulo.Tag(3)))
		Expect(grants[tomasulo.FUFPDiv]).To(BeTrue())
		Expect(grants[tomasulo.FUALU]).To(BeFalse())
		Expect(grants[tomasulo.FUMul]).To(BeFalse())
	})

	It("should rank the memory path above the ALU", func() {
		requests[tomasulo.FUALU] = tomasulo.Completion{Valid: true, Tag: 1}
		requests[tomasulo.FUMem] = tomasulo.Completion{Valid: true, Tag: 2}

		winner, _, _ := arbiter.Arbitrate(&requests)
		Expect(winner.Tag).To(Equal(tomasulo.Tag(2)))
	})

	It("should grant exactly one producer", func() {
		for kind := range requests {
			requests[kind] = tomasulo.Completion{Valid: true, Tag: tomasulo.Tag(kind)}
		}

		_, grants, _ := arbiter.Arbitrate(&requests)
		granted := 0
		for _, g := range grants {
			if g {
				granted++
			}
		}
		Expect(granted).To(Equal(1))
	})
})

var _ = Describe("Adapter", func() {
	var adapter *tomasulo.Adapter

	result := func(tag tomasulo.Tag) tomasulo.Completion {
		return tomasulo.Completion{Valid: true, Tag: tag, Value: uint64(tag) * 10}
	}

	BeforeEach(func() {
		adapter = tomasulo.NewAdapter()
	})

	It("should pass a fresh result through with no added latency", func() {
		out := adapter.Output(result(1))
		Expect(out.Valid).To(BeTrue())
		Expect(out.Tag).To(Equal(tomasulo.Tag(1)))
		Expect(adapter.Pending()).To(BeFalse())
	})

	It("should latch a denied result and re-present it", func() {
		adapter.Step(result(1), false)
		Expect(adapter.Pending()).To(BeTrue())

		// The unit produces nothing further; the held result is
		// re-presented unchanged.
		out := adapter.Output(tomasulo.Completion{})
		Expect(out.Valid).To(BeTrue())
		Expect(out.Tag).To(Equal(tomasulo.Tag(1)))
	})

	It("should clear on grant with no successor", func() {
		adapter.Step(result(1), false)
		adapter.Step(tomasulo.Completion{}, true)
		Expect(adapter.Pending()).To(BeFalse())
	})

	It("should latch a new result the cycle the old one is granted", func() {
		adapter.Step(result(1), false)
		adapter.Step(result(2), true)

		Expect(adapter.Pending()).To(BeTrue())
		out := adapter.Output(tomasulo.Completion{})
		Expect(out.Tag).To(Equal(tomasulo.Tag(2)))
	})

	It("should not latch a granted pass-through", func() {
		adapter.Step(result(1), true)
		Expect(adapter.Pending()).To(BeFalse())
	})

	It("should drop a held result younger than a flush boundary", func() {
		adapter.Step(result(9), false)
		adapter.FlushYounger(4, 0)
		Expect(adapter.Pending()).To(BeFalse())
	})

	It("should keep a held result at or older than the boundary", func() {
		adapter.Step(result(3), false)
		adapter.FlushYounger(4, 0)
		Expect(adapter.Pending()).To(BeTrue())
	})
})
