package taxonomy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/competitor-radar/internal/taxonomy"
)

func TestDefaultOrder(t *testing.T) {
	want := []string{
		"Funding",
		"Product Launch",
		"M&A",
		"Partnership",
		"IPO / Capital Market",
		"Clinical Development",
		"Patent",
		"Recognition",
		"Regulatory",
		"Corporate Update",
	}
	require.Equal(t, want, taxonomy.Default().Labels())
}

func TestClassify(t *testing.T) {
	tax := taxonomy.Default()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "funding", title: "Acme raises Series B funding", want: taxonomy.Funding},
		{name: "product launch", title: "Beta unveils its next imaging system", want: taxonomy.ProductLaunch},
		{name: "m&a", title: "Gamma acquires a small robotics shop", want: taxonomy.MergersAcquisitions},
		{name: "partnership", title: "Delta teams up with a hospital network", want: taxonomy.Partnership},
		{name: "ipo", title: "Epsilon files S-1 with regulators", want: taxonomy.CapitalMarket},
		{name: "clinical", title: "Zeta starts a first-in-human study", want: taxonomy.ClinicalDevelopment},
		{name: "patent", title: "Eta secures trademark in Europe", want: taxonomy.Patent},
		{name: "recognition", title: "Theta named award winner", want: taxonomy.Recognition},
		{name: "regulatory", title: "Iota receives CE Mark for device", want: taxonomy.Regulatory},
		{name: "corporate", title: "Kappa opens office in Boston", want: taxonomy.CorporateUpdate},
		{name: "case insensitive", title: "ACME RAISES CASH", want: taxonomy.Funding},
		{name: "no match", title: "Quarterly newsletter", want: "Other"},
		{name: "empty", title: "", want: "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tax.Classify(tt.title, "Other"))
		})
	}
}

func TestClassifyEarlierCategoryWins(t *testing.T) {
	tax := taxonomy.Default()

	// Product Launch precedes M&A.
	require.Equal(t, taxonomy.ProductLaunch, tax.Classify("Merger partner to launch joint device", "Other"))
	// Funding precedes Partnership.
	require.Equal(t, taxonomy.Funding, tax.Classify("Strategic alliance brings new financing", "Other"))
	// Recognition precedes Regulatory.
	require.Equal(t, taxonomy.Recognition, tax.Classify("Winner of FDA approval race", "Other"))
}

func TestClassifySubstringMatch(t *testing.T) {
	tax := taxonomy.Default()
	// "ipo" sits inside "bipolar"; substring matching is kept on purpose.
	require.Equal(t, taxonomy.CapitalMarket, tax.Classify("Study on bipolar disorder", "Other"))
}

func TestClassifyFallbackIsPassedThrough(t *testing.T) {
	tax := taxonomy.Default()
	for _, fallback := range []string{"Other", "其他", ""} {
		require.Equal(t, fallback, tax.Classify("", fallback))
		require.Equal(t, fallback, tax.Classify("nothing relevant", fallback))
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name       string
		categories []taxonomy.Category
	}{
		{name: "empty", categories: nil},
		{name: "blank label", categories: []taxonomy.Category{{Label: " ", Phrases: []string{"x"}}}},
		{name: "no phrases", categories: []taxonomy.Category{{Label: "A"}}},
		{name: "blank phrase", categories: []taxonomy.Category{{Label: "A", Phrases: []string{"x", "  "}}}},
		{name: "duplicate", categories: []taxonomy.Category{
			{Label: "A", Phrases: []string{"x"}},
			{Label: "A", Phrases: []string{"y"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taxonomy.New(tt.categories)
			require.ErrorIs(t, err, taxonomy.ErrInvalidTaxonomy)
		})
	}
}

func TestLoadKeepsFileOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	content := `categories:
  - label: Layoffs
    phrases: [Layoffs, "cuts jobs"]
  - label: Funding
    phrases: [raises]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tax, err := taxonomy.Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Layoffs", "Funding"}, tax.Labels())
	require.Equal(t, []string{"layoffs", "cuts jobs"}, tax.Categories()[0].Phrases)
	require.Equal(t, "Layoffs", tax.Classify("Acme raises cash then announces layoffs", "Other"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := taxonomy.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCategoriesReturnsCopy(t *testing.T) {
	tax := taxonomy.Default()
	cats := tax.Categories()
	cats[0].Phrases[0] = "mutated"
	require.Equal(t, taxonomy.Funding, tax.Classify("Series A round", "Other"))
}
