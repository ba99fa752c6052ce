package expense

import "strings"

// Category ids known to the registry
const (
	CategoryFeed           = "feed"
	CategoryVeterinary     = "veterinary"
	CategorySupplies       = "supplies"
	CategoryEquipment      = "equipment"
	CategoryAnimalPurchase = "animal_purchase"
	CategoryShowFees       = "show_fees"
	CategoryTransportation = "transportation"
	CategoryOther          = "other"
)

// Category describes one expense category: how it is labelled, how it is
// reported for taxes and which words on a receipt line point at it.
// Keywords match anywhere in a line, so Exclusions lists the longer words
// that contain a keyword without meaning it ("velvet" for "vet").
type Category struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Subcategories []string `json:"subcategories"`
	TaxLine       string   `json:"tax_line"`
	Deductible    bool     `json:"is_deductible"`
	Keywords      []string `json:"keywords"`
	Exclusions    []string `json:"exclusions,omitempty"`
}

// DefaultSubcategory returns the first subcategory of the category.
func (c Category) DefaultSubcategory() string {
	if len(c.Subcategories) == 0 {
		return ""
	}
	return c.Subcategories[0]
}

// registry is ordered: keyword classification walks it top to bottom and
// the first category with a matching keyword wins. Supplies and equipment
// sit ahead of feed so "feeder", "feed pan" or "feed scale" land on the
// hardware; other sits last and carries no keywords.
var registry = []Category{
	{
		ID:            CategorySupplies,
		Label:         "Supplies",
		Subcategories: []string{"grooming", "tack", "feeders and waterers", "bedding", "cleaning", "tags"},
		TaxLine:       "Schedule F Line 28 - Supplies",
		Deductible:    true,
		Keywords: []string{
			"shampoo", "soap", "brush", "show comb", "curry comb", "adhesive", "sheen", "show foam", "conditioner",
			"halter", "lead rope", "rope halter", "show stick", "whip", "bucket", "feeder", "waterer",
			"trough", "feed pan", "shavings", "bedding", "straw", "ear tag", "tagger", "glove", "fly spray",
			"pine", "hose", "scoop", "fork", "shovel", "rake", "bleach", "disinfectant", "bungee", "towel",
			"wheelbarrow",
		},
		Exclusions: []string{"brake", "spine"},
	},
	{
		ID:            CategoryEquipment,
		Label:         "Equipment",
		Subcategories: []string{"clippers", "fans", "pens and panels", "scales", "trailers"},
		TaxLine:       "Schedule F Line 14 - Depreciation and section 179",
		Deductible:    true,
		Keywords: []string{
			"clipper", "blower", "fan", "panel", "gate", "chute", "scale", "trailer", "fence",
			"heat lamp", "heater", "mister", "cooler", "blade", "generator", "fitting stand", "blocking stand", "trimming table",
		},
		Exclusions: []string{"fancy", "infant", "navigat", "irrigat"},
	},
	{
		ID:            CategoryFeed,
		Label:         "Feed",
		Subcategories: []string{"complete feed", "grain", "hay", "supplement", "mineral", "show feed", "starter", "grower", "finisher"},
		TaxLine:       "Schedule F Line 16 - Feed",
		Deductible:    true,
		Keywords: []string{
			"feed", "grain", "grow", "pellet", "ration", "hay", "alfalfa", "corn", "oats", "barley",
			"soybean", "supplement", "mineral", "starter", "finisher", "developer", "creep",
			"sweet feed", "show chow", "purina", "jacoby", "moorman", "sunglo", "kent", "lindner",
			"bluebonnet", "nutrena", "honor show", "fat cow", "beet pulp", "chaff", "protein tub", "lick tub",
		},
		Exclusions: []string{
			"goat", "coat", "boat", "registration", "operation", "generation", "duration", "corner", "acorn", "unicorn",
		},
	},
	{
		ID:            CategoryVeterinary,
		Label:         "Veterinary",
		Subcategories: []string{"medication", "vaccination", "dewormer", "exam", "treatment"},
		TaxLine:       "Schedule F Line 33 - Veterinary, breeding, and medicine",
		Deductible:    true,
		Keywords: []string{
			"vet", "vaccin", "antibiotic", "penicillin", "oxytet", "la-200", "draxxin", "nuflor",
			"dewormer", "wormer", "ivermectin", "cydectin", "safeguard", "medic", "injection",
			"exam", "treatment", "clinic", "lab fee", "health cert", "coggins", "bovi-shield", "cdt",
			"probiotic", "electrolyte", "wound", "pinkeye",
		},
		Exclusions: []string{"velvet", "corvette", "rivet", "duvet"},
	},
	{
		ID:            CategoryAnimalPurchase,
		Label:         "Animal Purchase",
		Subcategories: []string{"market animal", "breeding stock"},
		TaxLine:       "Form 4797 - Basis of purchased livestock",
		Deductible:    false,
		Keywords: []string{
			"steer", "heifer", "barrow", "gilt", "wether", "ewe lamb", "breeding doe", "buck kid", "bottle calf",
			"market hog", "market lamb", "market goat", "breeding stock", "livestock purchase", "animal purchase",
		},
		Exclusions: []string{"steering"},
	},
	{
		ID:            CategoryShowFees,
		Label:         "Show & Entry Fees",
		Subcategories: []string{"entry fee", "stall fee", "membership", "registration"},
		TaxLine:       "Schedule F Line 32 - Other expenses",
		Deductible:    true,
		Keywords: []string{
			"entry", "stall fee", "show fee", "membership", "dues", "exhibitor", "registration",
			"nomination", "jackpot", "premium book", "4-h club", "ffa",
		},
		Exclusions: []string{"buffalo", "residue", "sentry"},
	},
	{
		ID:            CategoryTransportation,
		Label:         "Transportation",
		Subcategories: []string{"fuel", "hauling", "mileage"},
		TaxLine:       "Schedule F Line 10 - Car and truck expenses",
		Deductible:    true,
		Keywords: []string{
			"fuel", "diesel", "gasoline", "unleaded", "hauling", "mileage", "freight", "delivery", "toll",
		},
	},
	{
		ID:            CategoryOther,
		Label:         "Other",
		Subcategories: []string{"miscellaneous"},
		TaxLine:       "Schedule F Line 32 - Other expenses",
		Deductible:    false,
	},
}

var registryIndex = func() map[string]int {
	idx := make(map[string]int, len(registry))
	for i, c := range registry {
		idx[c.ID] = i
	}
	return idx
}()

// Categories returns a copy of the registry in classification order.
func Categories() []Category {
	out := make([]Category, len(registry))
	for i, c := range registry {
		out[i] = c.clone()
	}
	return out
}

// LookupCategory returns the registry entry for id.
func LookupCategory(id string) (Category, bool) {
	i, ok := registryIndex[id]
	if !ok {
		return Category{}, false
	}
	return registry[i].clone(), true
}

// IsCategory reports whether id names a registry category.
func IsCategory(id string) bool {
	_, ok := registryIndex[id]
	return ok
}

// NormalizeCategory maps a category id or label, in any case, to a
// registry id. Anything unrecognised becomes CategoryOther.
func NormalizeCategory(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if IsCategory(v) {
		return v
	}
	v = strings.ReplaceAll(v, " ", "_")
	if IsCategory(v) {
		return v
	}
	for _, c := range registry {
		if strings.EqualFold(c.Label, strings.TrimSpace(value)) {
			return c.ID
		}
	}
	return CategoryOther
}

// HasSubcategory reports whether sub is one of the category's subcategories.
func (c Category) HasSubcategory(sub string) bool {
	for _, s := range c.Subcategories {
		if strings.EqualFold(s, sub) {
			return true
		}
	}
	return false
}

func (c Category) clone() Category {
	c.Subcategories = append([]string(nil), c.Subcategories...)
	c.Keywords = append([]string(nil), c.Keywords...)
	c.Exclusions = append([]string(nil), c.Exclusions...)
	return c
}
