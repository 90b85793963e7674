package frontend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/frontend"
)

var _ = Describe("Frontend", func() {
	It("should fetch sequentially and advance on accept", func() {
		program := insts.NewProgram().
			AddI(1, 0, 1).
			AddI(2, 0, 2)
		f := frontend.New(program, nil)

		req, ok := f.Next()
		Expect(ok).To(BeTrue())
		Expect(req.Op.PC).To(BeZero())
		f.Accept()

		req, ok = f.Next()
		Expect(ok).To(BeTrue())
		Expect(req.Op.PC).To(Equal(uint64(4)))
	})

	It("should re-present a rejected request unchanged", func() {
		program := insts.NewProgram().AddI(1, 0, 1)
		f := frontend.New(program, nil)

		first, _ := f.Next()
		second, ok := f.Next()
		Expect(ok).To(BeTrue())
		Expect(second).To(Equal(first))
		Expect(f.Stats().Fetched).To(Equal(uint64(1)))
	})

	It("should stall at the end of the program", func() {
		program := insts.NewProgram().AddI(1, 0, 1)
		f := frontend.New(program, nil)

		f.Next()
		f.Accept()

		_, ok := f.Next()
		Expect(ok).To(BeFalse())
	})

	It("should steer fetch through jumps with a correct prediction", func() {
		program := insts.NewProgram().
			Jal(1, 8).
			AddI(2, 0, 1). // skipped
			AddI(3, 0, 1)
		f := frontend.New(program, nil)

		req, _ := f.Next()
		Expect(req.Op.Op).To(Equal(insts.OpJal))
		Expect(req.PredictedTaken).To(BeTrue())
		Expect(req.PredictedTarget).To(Equal(uint64(8)))
		f.Accept()

		req, _ = f.Next()
		Expect(req.Op.PC).To(Equal(uint64(8)))
	})

	It("should fall through an untrained conditional branch", func() {
		program := insts.NewProgram().
			Bne(1, 0, 8).
			AddI(2, 0, 1).
			AddI(3, 0, 1)
		f := frontend.New(program, nil)

		req, _ := f.Next()
		Expect(req.PredictedTaken).To(BeFalse())
		f.Accept()

		req, _ = f.Next()
		Expect(req.Op.PC).To(Equal(uint64(4)))
	})

	It("should follow a trained branch to its target", func() {
		program := insts.NewProgram().
			Bne(1, 0, 8).
			AddI(2, 0, 1).
			AddI(3, 0, 1)
		f := frontend.New(program, nil)

		for i := 0; i < 4; i++ {
			f.Train(0, true, 8)
		}

		req, _ := f.Next()
		Expect(req.PredictedTaken).To(BeTrue())
		Expect(req.PredictedTarget).To(Equal(uint64(8)))
		f.Accept()

		req, _ = f.Next()
		Expect(req.Op.PC).To(Equal(uint64(8)))
	})

	It("should stop fetching past a halt until redirected", func() {
		program := insts.NewProgram().
			Halt(0).
			AddI(1, 0, 1)
		f := frontend.New(program, nil)

		f.Next()
		f.Accept()

		_, ok := f.Next()
		Expect(ok).To(BeFalse())

		f.Redirect(4)
		req, ok := f.Next()
		Expect(ok).To(BeTrue())
		Expect(req.Op.PC).To(Equal(uint64(4)))
	})

	It("should abandon a pending request on redirect", func() {
		program := insts.NewProgram().
			AddI(1, 0, 1).
			AddI(2, 0, 2).
			AddI(3, 0, 3)
		f := frontend.New(program, nil)

		f.Next() // pending, never accepted
		f.Redirect(8)

		req, ok := f.Next()
		Expect(ok).To(BeTrue())
		Expect(req.Op.PC).To(Equal(uint64(8)))
	})

	It("should reset to the program start", func() {
		program := insts.NewProgram().
			AddI(1, 0, 1).
			AddI(2, 0, 2)
		f := frontend.New(program, nil)

		f.Next()
		f.Accept()
		f.Reset()

		req, _ := f.Next()
		Expect(req.Op.PC).To(BeZero())
	})
})
