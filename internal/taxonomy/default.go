package taxonomy

// Base category labels.
const (
	Funding             = "Funding"
	ProductLaunch       = "Product Launch"
	MergersAcquisitions = "M&A"
	Partnership         = "Partnership"
	CapitalMarket       = "IPO / Capital Market"
	ClinicalDevelopment = "Clinical Development"
	Patent              = "Patent"
	Recognition         = "Recognition"
	Regulatory          = "Regulatory"
	CorporateUpdate     = "Corporate Update"
)

var defaultCategories = []Category{
	{Label: Funding, Phrases: []string{"series a", "series b", "series c", "funding", "investment", "raises", "venture capital", "financing"}},
	{Label: ProductLaunch, Phrases: []string{"launch", "introduces", "unveils", "releases", "new product", "commercial availability", "rolls out"}},
	{Label: MergersAcquisitions, Phrases: []string{"merger", "acquisition", "acquires", "buys", "takeover", "merges with"}},
	{Label: Partnership, Phrases: []string{"partnership", "collaboration", "teams up", "joins forces", "strategic alliance"}},
	{Label: CapitalMarket, Phrases: []string{"sec filing", "ipo", "public offering", "spac", "files s-1"}},
	{Label: ClinicalDevelopment, Phrases: []string{"clinical trial", "phase i", "phase ii", "phase iii", "first-in-human", "pivotal trial"}},
	{Label: Patent, Phrases: []string{"patent", "intellectual property", "ip protection", "trademark"}},
	{Label: Recognition, Phrases: []string{"award", "recognition", "grants", "honor", "winner", "recipient"}},
	{Label: Regulatory, Phrases: []string{"fda approval", "ce mark", "510(k)", "regulatory clearance", "notified body"}},
	{Label: CorporateUpdate, Phrases: []string{"expands", "rebrands", "opens office", "hiring", "growth update", "board member"}},
}

var defaultTaxonomy = mustNew(defaultCategories)

// Default returns the built-in ten-category taxonomy.
func Default() *Taxonomy { return defaultTaxonomy }

func mustNew(categories []Category) *Taxonomy {
	t, err := New(categories)
	if err != nil {
		panic(err)
	}
	return t
}
