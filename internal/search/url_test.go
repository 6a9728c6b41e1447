package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSearchURL(t *testing.T) {
	u := BuildSearchURL("Go Engineer", "New York", 25, []int{2, 3}, "24 hours")
	assert.Equal(t,
		"https://www.linkedin.com/jobs/search/?f_LF=f_AL&keywords=Go+Engineer&location=New+York&start=25&f_E=2,3&f_TPR=r86400",
		u)
}

func TestBuildSearchURLMinimal(t *testing.T) {
	u := BuildSearchURL("Welder", "Remote", 0, nil, "any time")
	assert.Equal(t,
		"https://www.linkedin.com/jobs/search/?f_LF=f_AL&keywords=Welder&location=Remote&start=0",
		u)
}

func TestTimeFilterParam(t *testing.T) {
	assert.Equal(t, "r86400", TimeFilterParam("24 hours"))
	assert.Equal(t, "r604800", TimeFilterParam("past week"))
	assert.Equal(t, "r2592000", TimeFilterParam("past month"))
	assert.Equal(t, "", TimeFilterParam("whenever"))
}

func TestExperienceLevelNamesCoverAllCodes(t *testing.T) {
	for code := 1; code <= 6; code++ {
		assert.NotEmpty(t, ExperienceLevelNames[code])
	}
}
