package scholarship

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile() Profile {
	return Profile{
		State:     "West Bengal",
		Board:     "CBSE",
		Grade:     "12",
		Category:  "General",
		Income:    "200000",
		Interests: "Science",
	}
}

func TestDefaultCatalogueParses(t *testing.T) {
	all, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, all)
}

func TestFilterMatchesProfile(t *testing.T) {
	all, err := Default()
	require.NoError(t, err)

	got := Filter(all, profile())
	names := make([]string, 0, len(got))
	for _, s := range got {
		names = append(names, s.Name)
	}

	assert.Contains(t, names, "National Means-cum-Merit Scholarship (NMMSS)")
	assert.Contains(t, names, "Swami Vivekananda Merit-cum-Means Scholarship")
	assert.Contains(t, names, "Buddy4Study Scholarship Programme")
	assert.NotContains(t, names, "Post Matric Scholarship for SC Students")
	assert.NotContains(t, names, "Bihar Post Matric Scholarship")
	assert.NotContains(t, names, "Sketchy Quick Cash Grant")
}

func TestFilterRespectsIncomeLimit(t *testing.T) {
	s := Scholarship{
		States: []string{"All"}, Boards: []string{"CBSE"}, Grades: []string{"12"},
		Category: "All", IncomeLimit: 100000, URL: "https://scholarships.gov.in",
	}
	p := profile()
	assert.False(t, s.Eligible(p))
	p.Income = "100000"
	assert.True(t, s.Eligible(p))
}

func TestTrustedURL(t *testing.T) {
	assert.True(t, TrustedURL("https://scholarships.gov.in"))
	assert.True(t, TrustedURL("https://www.buddy4study.com/page"))
	assert.False(t, TrustedURL("http://free-money.xyz"))
	assert.False(t, TrustedURL("::nope"))
}

func TestProfileValidate(t *testing.T) {
	assert.Nil(t, profile().Validate(DefaultOptions()))

	p := profile()
	p.State = ""
	p.Income = "lots"
	p.Interests = " "
	errs := p.Validate(DefaultOptions())
	assert.Equal(t, "Select State", errs["state"])
	assert.Contains(t, errs, "income")
	assert.Contains(t, errs, "interests")
}
