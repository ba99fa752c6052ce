package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/livestock-receipts/internal/expense"
)

var _ = Describe("matchVendor", func() {
	known := []string{"Tractor Supply Co", "Tractor Supply", "Dr. Smith's Large Animal Clinic", "Co"}

	It("matches ignoring case and punctuation", func() {
		Expect(matchVendor("DR. SMITH'S LARGE ANIMAL CLINIC #2", known)).To(Equal("Dr. Smith's Large Animal Clinic"))
		Expect(matchVendor("dr smith s large animal clinic", known)).To(Equal("Dr. Smith's Large Animal Clinic"))
	})

	It("prefers the longest known name", func() {
		Expect(matchVendor("TRACTOR SUPPLY", known)).To(Equal("Tractor Supply Co"))
	})

	It("ignores very short names", func() {
		Expect(matchVendor("Coastal", known)).To(Equal("Coastal"))
	})

	It("leaves unknown vendors alone", func() {
		Expect(matchVendor(expense.UnknownVendor, known)).To(Equal(expense.UnknownVendor))
		Expect(matchVendor("Rural King", known)).To(Equal("Rural King"))
	})
})
