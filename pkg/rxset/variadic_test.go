package rxset

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Union", func() {
	ginkgo.It("includes a value present in any source and removes it only once absent from all", func() {
		a := NewCollection(CollectionConfig[int]{Label: "a"})
		b := NewCollection(CollectionConfig[int]{Label: "b"})
		u, err := NewUnion(VariadicConfig[int]{Subsets: []CollectionNode[int]{AsNode(a), AsNode(b)}})
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Add(1)).To(Succeed())
		Expect(u.Values().Has(1)).To(BeTrue())

		Expect(b.Add(1)).To(Succeed())
		Expect(a.Delete(1)).To(Succeed())
		Expect(u.Values().Has(1)).To(BeTrue())

		Expect(b.Delete(1)).To(Succeed())
		Expect(u.Values().Has(1)).To(BeFalse())
	})

	ginkgo.It("rejects registering the same source twice", func() {
		a := NewCollection(CollectionConfig[int]{Label: "a"})
		_, err := NewUnion(VariadicConfig[int]{Subsets: []CollectionNode[int]{AsNode(a), AsNode(a)}})
		Expect(err).To(MatchError(ErrDuplicateSource))
	})
})

var _ = ginkgo.Describe("Intersection", func() {
	ginkgo.It("converges to the common elements of its sources", func() {
		a := NewCollection(CollectionConfig[int]{Values: NewSet(1, 2, 3), Label: "a"})
		b := NewCollection(CollectionConfig[int]{Values: NewSet(2, 3, 4), Label: "b"})
		x, err := NewIntersection(VariadicConfig[int]{Subsets: []CollectionNode[int]{AsNode(a), AsNode(b)}})
		Expect(err).NotTo(HaveOccurred())

		Expect(x.Values().Equal(NewSet(2, 3))).To(BeTrue())

		Expect(a.Add(4)).To(Succeed())
		Expect(x.Values().Has(4)).To(BeTrue())

		Expect(b.Delete(4)).To(Succeed())
		Expect(x.Values().Has(4)).To(BeFalse())
	})

	ginkgo.It("recovers elements that become fully included after a source unmounts", func() {
		a := NewCollection(CollectionConfig[int]{Values: NewSet(1), Label: "a"})
		b := NewCollection(CollectionConfig[int]{Values: NewSet(2), Label: "b"})
		u, err := NewUnion(VariadicConfig[int]{Subsets: []CollectionNode[int]{AsNode(b)}})
		Expect(err).NotTo(HaveOccurred())

		x, err := NewIntersection(VariadicConfig[int]{Subsets: []CollectionNode[int]{AsNode(a), u}})
		Expect(err).NotTo(HaveOccurred())
		Expect(x.Values().Len()).To(Equal(0))

		u.Disable()
		Expect(x.Values().Equal(NewSet(1))).To(BeTrue())
	})
})

var _ = ginkgo.Describe("Difference", func() {
	ginkgo.It("excludes values present in any included excluded source and restores them once absent from all", func() {
		super := NewCollection(CollectionConfig[int]{Values: NewSet(1, 2, 3), Label: "super"})
		x1 := NewCollection(CollectionConfig[int]{Label: "x1"})
		x2 := NewCollection(CollectionConfig[int]{Label: "x2"})

		d, err := NewDifference(DifferenceConfig[int]{
			Superset: AsNode(super),
			Excluded: []CollectionNode[int]{AsNode(x1), AsNode(x2)},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Values().Equal(NewSet(1, 2, 3))).To(BeTrue())

		Expect(x1.Add(2)).To(Succeed())
		Expect(d.Values().Has(2)).To(BeFalse())

		Expect(x2.Add(2)).To(Succeed())
		Expect(x1.Delete(2)).To(Succeed())
		Expect(d.Values().Has(2)).To(BeFalse())

		Expect(x2.Delete(2)).To(Succeed())
		Expect(d.Values().Has(2)).To(BeTrue())
	})

	ginkgo.It("tracks superset removals unconditionally", func() {
		super := NewCollection(CollectionConfig[int]{Values: NewSet(1, 2), Label: "super"})
		d, err := NewDifference(DifferenceConfig[int]{Superset: AsNode(super)})
		Expect(err).NotTo(HaveOccurred())

		Expect(super.Delete(1)).To(Succeed())
		Expect(d.Values().Equal(NewSet(2))).To(BeTrue())
	})
})

var _ = ginkgo.Describe("cascade", func() {
	ginkgo.It("does not disable a union when one of its sources disables, only excludes it", func() {
		a := NewCollection(CollectionConfig[int]{Values: NewSet(1), Label: "a"})
		inner, err := NewUnion(VariadicConfig[int]{Subsets: []CollectionNode[int]{AsNode(a)}})
		Expect(err).NotTo(HaveOccurred())

		outer, err := NewUnion(VariadicConfig[int]{Subsets: []CollectionNode[int]{inner}})
		Expect(err).NotTo(HaveOccurred())
		Expect(outer.Values().Has(1)).To(BeTrue())

		inner.Disable()
		Expect(outer.Enabled()).To(BeTrue())
		Expect(outer.Values().Has(1)).To(BeFalse())

		inner.Enable()
		Expect(outer.Values().Has(1)).To(BeTrue())
	})
})
