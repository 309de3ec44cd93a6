package rxset

import (
	"github.com/go-logr/logr"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type item struct {
	id  int
	key string
}

var _ = ginkgo.Describe("SubsetViaCell", func() {
	ginkgo.It("tracks the subset matching the selector's current key", func() {
		super := NewCollection(CollectionConfig[item]{
			Values: NewSet(item{1, "a"}, item{2, "b"}, item{3, "a"}),
			Label:  "super",
		})
		selector := NewCell(CellConfig[string]{Value: "a", Label: "selector"})

		p, err := SubsetViaCell[item, string]("subset", AsNode(super), func(it item) string { return it.key }, selector, logr.Discard(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Values().Equal(NewSet(item{1, "a"}, item{3, "a"}))).To(BeTrue())

		Expect(selector.SetValue("b")).To(Succeed())
		Expect(p.Values().Equal(NewSet(item{2, "b"}))).To(BeTrue())

		Expect(super.Add(item{4, "b"})).To(Succeed())
		Expect(p.Values().Has(item{4, "b"})).To(BeTrue())

		Expect(super.Delete(item{2, "b"})).To(Succeed())
		Expect(p.Values().Equal(NewSet(item{4, "b"}))).To(BeTrue())
	})
})

var _ = ginkgo.Describe("MappedSet", func() {
	ginkgo.It("keeps an output value present while any source element maps to it", func() {
		source := NewCollection(CollectionConfig[item]{Values: NewSet(item{1, "a"}, item{2, "a"}), Label: "source"})
		p, err := MappedSet[item, string]("mapped", AsNode(source), func(it item) string { return it.key }, logr.Discard(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Values().Equal(NewSet("a"))).To(BeTrue())

		Expect(source.Delete(item{1, "a"})).To(Succeed())
		Expect(p.Values().Has("a")).To(BeTrue())

		Expect(source.Delete(item{2, "a"})).To(Succeed())
		Expect(p.Values().Len()).To(Equal(0))
	})
})

var _ = ginkgo.Describe("projection cascade", func() {
	ginkgo.It("disables a projection engine whenever a dependency combination disables", func() {
		a := NewCollection(CollectionConfig[int]{Values: NewSet(1, 2), Label: "a"})
		b := NewCollection(CollectionConfig[int]{Values: NewSet(2, 3), Label: "b"})
		x, err := NewIntersection(VariadicConfig[int]{Subsets: []CollectionNode[int]{AsNode(a), AsNode(b)}})
		Expect(err).NotTo(HaveOccurred())

		p, err := MappedSet[int, int]("double", x, func(v int) int { return v * 2 }, logr.Discard(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Values().Equal(NewSet(4))).To(BeTrue())

		x.Disable()
		Expect(p.Enabled()).To(BeFalse())
		Expect(p.Values().Len()).To(Equal(0))

		x.Enable()
		Expect(p.Enabled()).To(BeTrue())
		Expect(p.Values().Equal(NewSet(4))).To(BeTrue())
	})
})
