package expense

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AnalyzeFeed", func() {
	var (
		items   []LineItem
		summary FeedSummary
	)

	JustBeforeEach(func() {
		summary = AnalyzeFeed(items)
	})

	When("there are no items", func() {
		BeforeEach(func() {
			items = nil
		})

		It("returns a zero summary without a projection", func() {
			Expect(summary.TotalFeedWeight).To(BeZero())
			Expect(summary.EstimatedFeedCost.IsZero()).To(BeTrue())
			Expect(summary.FeedTypes).To(BeEmpty())
			Expect(summary.FeedTypes).NotTo(BeNil())
			Expect(summary.Projection).To(BeNil())
		})
	})

	When("there are feed and non-feed items", func() {
		BeforeEach(func() {
			grow := item(CategoryFeed, "JACOBY'S RED TAG GROW/DEV", "57.00")
			grow.FeedWeight = 100
			grow.Subcategory = "grower"
			hay := item(CategoryFeed, "ALFALFA HAY", "12.50")
			hay.FeedWeight = 65
			hay.Subcategory = "hay"
			more := item(CategoryFeed, "JACOBY'S RED TAG GROW/DEV", "28.50")
			more.FeedWeight = 50
			more.Subcategory = "grower"
			items = []LineItem{grow, item(CategorySupplies, "SHOW HALTER", "15.99"), hay, more}
		})

		It("sums only feed weight and cost", func() {
			Expect(summary.TotalFeedWeight).To(Equal(215.0))
			Expect(summary.EstimatedFeedCost.Equal(dollars("98.00"))).To(BeTrue())
		})

		It("groups feed types by name in order of appearance", func() {
			Expect(summary.FeedTypes).To(HaveLen(2))
			Expect(summary.FeedTypes[0].Name).To(Equal("JACOBY'S RED TAG GROW/DEV"))
			Expect(summary.FeedTypes[0].Weight).To(Equal(150.0))
			Expect(summary.FeedTypes[0].Cost.Equal(dollars("85.50"))).To(BeTrue())
			Expect(summary.FeedTypes[0].Category).To(Equal("grower"))
			Expect(summary.FeedTypes[1].Name).To(Equal("ALFALFA HAY"))
		})

		It("keeps the total equal to the sum of feed type weights", func() {
			var sum float64
			for _, ft := range summary.FeedTypes {
				sum += ft.Weight
			}
			Expect(summary.TotalFeedWeight).To(Equal(sum))
		})

		It("projects a thirty day supply", func() {
			Expect(summary.Projection).NotTo(BeNil())
			Expect(summary.Projection.SupplyDays).To(Equal(30))
			Expect(summary.Projection.DailyFeedWeight).To(BeNumerically("~", 215.0/30, 1e-9))
			Expect(summary.Projection.DailyFeedCost.Equal(dollars("3.27"))).To(BeTrue())
		})
	})

	When("feed items carry no weight", func() {
		BeforeEach(func() {
			items = []LineItem{item(CategoryFeed, "SHOW FEED", "30.00")}
		})

		It("reports cost without a projection", func() {
			Expect(summary.TotalFeedWeight).To(BeZero())
			Expect(summary.EstimatedFeedCost.Equal(dollars("30"))).To(BeTrue())
			Expect(summary.Projection).To(BeNil())
		})
	})

	When("a feed type name is set", func() {
		BeforeEach(func() {
			a := item(CategoryFeed, "50# SHOW FEED", "20.00")
			a.FeedType = "Show Feed"
			a.FeedWeight = 50
			b := item(CategoryFeed, "SHOW FEED 50LB", "21.00")
			b.FeedType = "Show Feed"
			b.FeedWeight = 50
			items = []LineItem{a, b}
		})

		It("groups by feed type instead of description", func() {
			Expect(summary.FeedTypes).To(HaveLen(1))
			Expect(summary.FeedTypes[0].Name).To(Equal("Show Feed"))
			Expect(summary.FeedTypes[0].Weight).To(Equal(100.0))
		})
	})
})
