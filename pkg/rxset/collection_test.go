package rxset

import (
	"testing"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRxset(t *testing.T) {
	RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "rxset Suite")
}

var _ = ginkgo.Describe("Collection", func() {
	var c *Collection[int]

	ginkgo.BeforeEach(func() {
		c = NewCollection(CollectionConfig[int]{Label: "c"})
	})

	ginkgo.It("emits an increment delta on Add", func() {
		var got Delta[int]
		c.OnChange().Subscribe(func(d Delta[int]) { got = d })

		Expect(c.Add(1)).To(Succeed())
		Expect(got.Increment.Has(1)).To(BeTrue())
		Expect(got.Decrement.Len()).To(Equal(0))
		Expect(c.Has(1)).To(BeTrue())
	})

	ginkgo.It("emits nothing when adding an already-present element", func() {
		Expect(c.Add(1)).To(Succeed())

		fired := false
		c.OnChange().Subscribe(func(Delta[int]) { fired = true })
		Expect(c.Add(1)).To(Succeed())
		Expect(fired).To(BeFalse())
	})

	ginkgo.It("coalesces add-then-delete of the same element within a transaction into no emission", func() {
		Expect(c.OpenTransaction()).To(Succeed())
		Expect(c.Add(1)).To(Succeed())
		Expect(c.Delete(1)).To(Succeed())

		fired := false
		c.OnChange().Subscribe(func(Delta[int]) { fired = true })
		Expect(c.CloseTransaction()).To(Succeed())
		Expect(fired).To(BeFalse())
		Expect(c.Has(1)).To(BeFalse())
	})

	ginkgo.It("discards staged mutations on CancelTransaction", func() {
		Expect(c.Add(1)).To(Succeed())
		Expect(c.OpenTransaction()).To(Succeed())
		Expect(c.Add(2)).To(Succeed())
		Expect(c.CancelTransaction()).To(Succeed())
		Expect(c.Has(2)).To(BeFalse())
		Expect(c.Has(1)).To(BeTrue())
	})

	ginkgo.It("rejects mutation while reactivity is disabled", func() {
		c.DisableReactivity()
		Expect(c.Add(1)).To(MatchError(ErrReactivityDisabled))
		c.EnableReactivity()
		Expect(c.Add(1)).To(Succeed())
	})

	ginkgo.It("rejects public mutation on a readonly collection", func() {
		ro := newReadonlyCollection[int](CollectionConfig[int]{Label: "ro"})
		Expect(ro.Add(1)).To(MatchError(ErrReadonlyAccess))
	})
})

var _ = ginkgo.Describe("Cell", func() {
	var cell *Cell[string]

	ginkgo.BeforeEach(func() {
		cell = NewCell(CellConfig[string]{Value: "a", Label: "cell"})
	})

	ginkgo.It("suppresses emission for a structurally equal write", func() {
		fired := false
		cell.OnChange().Subscribe(func(CellDelta[string]) { fired = true })
		Expect(cell.SetValue("a")).To(Succeed())
		Expect(fired).To(BeFalse())
	})

	ginkgo.It("emits increment/decrement pair on a real write", func() {
		var got CellDelta[string]
		cell.OnChange().Subscribe(func(d CellDelta[string]) { got = d })
		Expect(cell.SetValue("b")).To(Succeed())
		Expect(got.Decrement.Value).To(Equal("a"))
		Expect(got.Increment.Value).To(Equal("b"))
		Expect(cell.Value()).To(Equal("b"))
	})

	ginkgo.It("only commits the last staged value when closing a transaction", func() {
		Expect(cell.OpenTransaction()).To(Succeed())
		Expect(cell.SetValue("b")).To(Succeed())
		Expect(cell.SetValue("c")).To(Succeed())
		Expect(cell.Value()).To(Equal("a"))
		Expect(cell.CloseTransaction()).To(Succeed())
		Expect(cell.Value()).To(Equal("c"))
	})

	ginkgo.It("always restores to enabled after a disable/enable cycle", func() {
		Expect(cell.OpenTransaction()).To(Succeed())
		cell.DisableReactivity()
		cell.EnableReactivity()
		Expect(cell.SetValue("z")).To(Succeed())
		Expect(cell.Value()).To(Equal("z"))
	})
})
