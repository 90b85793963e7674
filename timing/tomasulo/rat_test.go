package tomasulo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/tomasulo"
)

var _ = Describe("RAT", func() {
	var rat *tomasulo.RAT

	BeforeEach(func() {
		rat = tomasulo.NewRAT()
	})

	It("should resolve unmapped registers to the architectural value", func() {
		op := rat.Lookup(insts.RFInt, 5, 123)
		Expect(op.Ready).To(BeTrue())
		Expect(op.Value).To(Equal(uint64(123)))
	})

	It("should resolve renamed registers to the producer tag", func() {
		rat.Rename(insts.RFInt, 5, 7)

		op := rat.Lookup(insts.RFInt, 5, 123)
		Expect(op.Ready).To(BeFalse())
		Expect(op.Tag).To(Equal(tomasulo.Tag(7)))
	})

	It("should keep integer register 0 always ready zero", func() {
		rat.Rename(insts.RFInt, 0, 7)

		op := rat.Lookup(insts.RFInt, 0, 99)
		Expect(op.Ready).To(BeTrue())
		Expect(op.Value).To(BeZero())
	})

	It("should keep the integer and FP tables independent", func() {
		rat.Rename(insts.RFInt, 3, 1)

		op := rat.Lookup(insts.RFFloat, 3, 55)
		Expect(op.Ready).To(BeTrue())
		Expect(op.Value).To(Equal(uint64(55)))
	})

	It("should let a later rename supersede an earlier one", func() {
		rat.Rename(insts.RFInt, 5, 1)
		rat.Rename(insts.RFInt, 5, 2)

		op := rat.Lookup(insts.RFInt, 5, 0)
		Expect(op.Tag).To(Equal(tomasulo.Tag(2)))
	})

	Describe("CommitClear", func() {
		It("should clear the alias when the committing tag matches", func() {
			rat.Rename(insts.RFInt, 5, 1)
			rat.CommitClear(insts.RFInt, 5, 1)

			op := rat.Lookup(insts.RFInt, 5, 77)
			Expect(op.Ready).To(BeTrue())
			Expect(op.Value).To(Equal(uint64(77)))
		})

		It("should leave a superseding alias in place", func() {
			rat.Rename(insts.RFInt, 5, 1)
			rat.Rename(insts.RFInt, 5, 2)
			rat.CommitClear(insts.RFInt, 5, 1)

			op := rat.Lookup(insts.RFInt, 5, 0)
			Expect(op.Ready).To(BeFalse())
			Expect(op.Tag).To(Equal(tomasulo.Tag(2)))
		})
	})

	Describe("checkpoints", func() {
		It("should report availability until all slots are taken", func() {
			for i := 0; i < tomasulo.NumCheckpoints; i++ {
				id, ok := rat.CheckpointAvailable()
				Expect(ok).To(BeTrue())
				rat.CheckpointSave(id, tomasulo.Tag(i))
			}
			_, ok := rat.CheckpointAvailable()
			Expect(ok).To(BeFalse())
		})

		It("should restore the aliases captured at save", func() {
			rat.Rename(insts.RFInt, 5, 1)

			id, _ := rat.CheckpointAvailable()
			rat.CheckpointSave(id, 2)

			// Speculative renames past the branch.
			rat.Rename(insts.RFInt, 5, 3)
			rat.Rename(insts.RFInt, 6, 4)

			rat.CheckpointRestore(id)

			Expect(rat.Lookup(insts.RFInt, 5, 0).Tag).To(Equal(tomasulo.Tag(1)))
			Expect(rat.Lookup(insts.RFInt, 6, 9).Ready).To(BeTrue())
		})

		It("should apply commit clears to saved checkpoints", func() {
			rat.Rename(insts.RFInt, 5, 1)

			id, _ := rat.CheckpointAvailable()
			rat.CheckpointSave(id, 2)

			// The producer of the saved alias retires before the branch
			// resolves.
			rat.CommitClear(insts.RFInt, 5, 1)
			rat.CheckpointRestore(id)

			op := rat.Lookup(insts.RFInt, 5, 42)
			Expect(op.Ready).To(BeTrue())
			Expect(op.Value).To(Equal(uint64(42)))
		})

		It("should free checkpoints younger than a flush boundary", func() {
			id0, _ := rat.CheckpointAvailable()
			rat.CheckpointSave(id0, 2)
			id1, _ := rat.CheckpointAvailable()
			rat.CheckpointSave(id1, 5)

			rat.FreeCheckpointsYounger(3, 0)

			// Only the younger branch's slot is released.
			id, ok := rat.CheckpointAvailable()
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(id1))
		})
	})

	Describe("FlushAll", func() {
		It("should clear every alias and checkpoint", func() {
			rat.Rename(insts.RFInt, 5, 1)
			rat.Rename(insts.RFFloat, 6, 2)
			id, _ := rat.CheckpointAvailable()
			rat.CheckpointSave(id, 3)

			rat.FlushAll()

			Expect(rat.Lookup(insts.RFInt, 5, 1).Ready).To(BeTrue())
			Expect(rat.Lookup(insts.RFFloat, 6, 2).Ready).To(BeTrue())
			free, ok := rat.CheckpointAvailable()
			Expect(ok).To(BeTrue())
			Expect(free).To(Equal(0))
		})
	})
})
