package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CompareVersions(t *testing.T) {
	tests := []struct {
		name      string
		ecosystem string
		a, b      string
		want      int
	}{
		{name: "semver less", ecosystem: "golang", a: "1.2.0", b: "1.10.0", want: -1},
		{name: "semver equal", ecosystem: "golang", a: "1.2.0", b: "1.2.0", want: 0},
		{name: "semver greater", ecosystem: "golang", a: "2.0.0", b: "1.9.9", want: 1},
		{name: "semver coerces short versions", ecosystem: "golang", a: "1.1", b: "1.1.0", want: 0},
		{name: "go stdlib prefix", ecosystem: "golang", a: "go1.22.2", b: "go1.9.1", want: 1},
		{name: "npm prerelease ordering", ecosystem: "npm", a: "1.0.0-alpha", b: "1.0.0", want: -1},
		{name: "pypi post release", ecosystem: "pypi", a: "1.0.0", b: "1.0.0.post1", want: -1},
		{name: "pypi epoch", ecosystem: "pypi", a: "1!1.0", b: "2.0", want: 1},
		{name: "string fallback", ecosystem: "golang", a: "abc", b: "abd", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.ecosystem, tt.a, tt.b))
		})
	}
}

func Test_SortVersions(t *testing.T) {
	got := SortVersions("golang", []string{"1.10.0", "1.2.0", "1.1.17", "1.1.1"})
	assert.Equal(t, []string{"1.1.1", "1.1.17", "1.2.0", "1.10.0"}, got)
}

func Test_SortVersions_DoesNotMutateInput(t *testing.T) {
	input := []string{"2.0.0", "1.0.0"}
	SortVersions("golang", input)
	assert.Equal(t, []string{"2.0.0", "1.0.0"}, input)
}

func Test_BasePurlFromComponents(t *testing.T) {
	assert.Equal(t, "pkg:golang/istio", BasePurlFromComponents("golang", "", "istio"))
	assert.Equal(t, "pkg:github/istio/istio", BasePurlFromComponents("github", "istio", "istio"))
}
