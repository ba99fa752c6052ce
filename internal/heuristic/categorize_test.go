package heuristic

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/livestock-receipts/internal/expense"
	"github.com/zombor/livestock-receipts/internal/scanning"
)

var _ = Describe("Categorize", func() {
	var (
		input  []expense.LineItem
		output []expense.LineItem
	)

	line := func(description string) expense.LineItem {
		return expense.LineItem{
			Description: description,
			Amount:      decimal.RequireFromString("10.00"),
			Category:    expense.CategoryOther,
			RawText:     description + " 10.00",
			Confidence:  0.6,
		}
	}

	JustBeforeEach(func() {
		output = Categorize(input)
	})

	When("an item names a feed brand line", func() {
		BeforeEach(func() {
			items := NewParser().ParseLineItems("2 JACOBY'S RED TAG GROW/DEV $57.00")
			Expect(items).To(HaveLen(1))
			input = items
		})

		It("is categorized as feed", func() {
			Expect(output[0].Category).To(Equal(expense.CategoryFeed))
			Expect(output[0].Amount.Equal(decimal.RequireFromString("57.00"))).To(BeTrue())
			Expect(output[0].FeedType).To(Equal("JACOBY'S RED TAG GROW/DEV"))
		})
	})

	When("items match different categories", func() {
		BeforeEach(func() {
			input = []expense.LineItem{
				line("PURINA HONOR SHOW CHOW"),
				line("IVERMECTIN POUR ON"),
				line("GALVANIZED FEEDER"),
				line("PREMIER CLIPPER BLADE"),
				line("DIESEL"),
				line("COUNTY FAIR ENTRY"),
				line("MARKET LAMB"),
				line("GIFT CARD"),
				line("VELVET RIBBON"),
			}
		})

		It("takes the first matching category in registry order", func() {
			categories := make([]string, len(output))
			for i, item := range output {
				categories[i] = item.Category
			}
			Expect(categories).To(Equal([]string{
				expense.CategoryFeed,
				expense.CategoryVeterinary,
				expense.CategorySupplies,
				expense.CategoryEquipment,
				expense.CategoryTransportation,
				expense.CategoryShowFees,
				expense.CategoryAnimalPurchase,
				expense.CategoryOther,
				expense.CategoryOther,
			}))
		})

		It("preserves order and count", func() {
			Expect(output).To(HaveLen(len(input)))
			for i := range input {
				Expect(output[i].Description).To(Equal(input[i].Description))
			}
		})

		It("does not modify the input", func() {
			for _, item := range input {
				Expect(item.Category).To(Equal(expense.CategoryOther))
			}
		})

		It("defaults the subcategory to the category's first one", func() {
			Expect(output[7].Subcategory).To(Equal("miscellaneous"))
			Expect(output[4].Subcategory).To(Equal("fuel"))
		})
	})

	When("a subcategory name appears in the description", func() {
		BeforeEach(func() {
			input = []expense.LineItem{line("ALFALFA HAY SMALL SQUARE"), line("SHOW FEED MINERAL")}
		})

		It("uses that subcategory", func() {
			Expect(output[0].Subcategory).To(Equal("hay"))
			Expect(output[1].Subcategory).To(Equal("mineral"))
		})
	})

	When("a keyword sits inside a longer word", func() {
		BeforeEach(func() {
			input = []expense.LineItem{
				line("PROFEED 50LB"),
				line("CATTLEGROW"),
				line("REGISTRATION FEE"),
				line("MARKET GOATS"),
				line("STEERING WHEEL COVER"),
			}
		})

		It("still matches it", func() {
			Expect(output[0].Category).To(Equal(expense.CategoryFeed))
			Expect(output[1].Category).To(Equal(expense.CategoryFeed))
		})

		It("skips the category's excluded words", func() {
			Expect(output[2].Category).To(Equal(expense.CategoryShowFees))
			Expect(output[2].Subcategory).To(Equal("registration"))
			Expect(output[3].Category).To(Equal(expense.CategoryAnimalPurchase))
			Expect(output[4].Category).To(Equal(expense.CategoryOther))
		})
	})

	When("a non-feed item carries a weight", func() {
		BeforeEach(func() {
			item := line("PINE SHAVINGS 40 LB")
			item.FeedWeight = 40
			input = []expense.LineItem{item}
		})

		It("clears the weight", func() {
			Expect(output[0].Category).To(Equal(expense.CategorySupplies))
			Expect(output[0].FeedWeight).To(BeZero())
			Expect(output[0].FeedType).To(BeEmpty())
		})
	})

	Describe("confidence", func() {
		It("scores a weighed feed item with a long description as certain", func() {
			item := expense.LineItem{
				Description: strings.Repeat("A", 25),
				Category:    expense.CategoryFeed,
				FeedWeight:  50,
			}
			Expect(Confidence(item)).To(Equal(1.0))
		})

		It("adds the feed bonus only with a weight", func() {
			item := expense.LineItem{Description: "HAY", Category: expense.CategoryFeed}
			Expect(Confidence(item)).To(Equal(0.7))
			item.FeedWeight = 60
			Expect(Confidence(item)).To(Equal(0.9))
		})

		It("adds the description bonus for other categories", func() {
			item := expense.LineItem{Description: "SHOW HALTER", Category: expense.CategorySupplies}
			Expect(Confidence(item)).To(Equal(0.8))
		})
	})
})

var _ = Describe("Fold", func() {
	It("pads words and drops punctuation", func() {
		Expect(Fold("JACOBY'S  GROW/DEV")).To(Equal(" jacoby s grow dev "))
	})

	It("matches phrases anywhere in the text", func() {
		Expect(ContainsPhrase(Fold("PROFEED 50LB"), "feed")).To(BeTrue())
		Expect(ContainsPhrase(Fold("CALF-MANNA"), "calf manna")).To(BeTrue())
		Expect(ContainsPhrase(Fold("VELVET"), "")).To(BeFalse())
	})

	It("blanks out excluded words", func() {
		folded := Without(Fold("VELVET VETERINARY"), []string{"velvet"})
		Expect(ContainsPhrase(folded, "vet")).To(BeTrue())
		Expect(ContainsPhrase(Without(Fold("VELVET"), []string{"velvet"}), "vet")).To(BeFalse())
	})
})

var _ = Describe("ReadText", func() {
	It("returns plain text receipts as is", func() {
		text, err := ReadText(scanning.Image{Data: []byte("FEED 10.00"), ContentType: "text/plain; charset=utf-8"})
		Expect(err).NotTo(HaveOccurred())
		Expect(text.Text).To(Equal("FEED 10.00"))
		Expect(text.Confidence).To(Equal(1.0))
	})

	It("returns empty text for an empty text receipt", func() {
		text, err := ReadText(scanning.Image{ContentType: "text/plain"})
		Expect(err).NotTo(HaveOccurred())
		Expect(text.Text).To(BeEmpty())
	})

	It("cannot read images", func() {
		_, err := ReadText(scanning.Image{Data: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png"})
		Expect(errors.Is(err, scanning.ErrNoText)).To(BeTrue())
	})
})
