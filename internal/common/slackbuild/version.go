package slackbuild

import (
	"regexp"
	"strconv"
	"strings"
)

// Version suffix priorities (lower = earlier in release cycle)
var suffixPriority = map[string]int{
	"alpha": -4,
	"beta":  -3,
	"pre":   -2,
	"rc":    -1,
	"":      0, // release version
	"p":     1, // patch
}

// versionSuffixRegex matches suffixes like _rc1, -beta2, ~alpha, rc3
var versionSuffixRegex = regexp.MustCompile(`[_~-]?(alpha|beta|pre|rc|p)(\d*)$`)

// buildNumberRegex matches a trailing package build number such as _1 or -2
var buildNumberRegex = regexp.MustCompile(`[_-](\d+)$`)

// parseVersion breaks a version string into components for comparison
// Returns: numeric parts, suffix type, suffix num, build num
func parseVersion(v string) ([]int, string, int, int) {
	v = strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V"))

	// Extract suffix (_rc1, -beta2, etc.)
	suffixType := ""
	suffixNum := 0
	if matches := versionSuffixRegex.FindStringSubmatch(v); matches != nil {
		suffixType = matches[1]
		if matches[2] != "" {
			suffixNum, _ = strconv.Atoi(matches[2])
		}
		v = versionSuffixRegex.ReplaceAllString(v, "")
	}

	build := 0
	if matches := buildNumberRegex.FindStringSubmatch(v); matches != nil {
		build, _ = strconv.Atoi(matches[1])
		v = buildNumberRegex.ReplaceAllString(v, "")
	}

	// Parse numeric parts (1.0.1 -> [1, 0, 1])
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		// Handle letter suffixes in version numbers (e.g., 1.0a -> 1, 0)
		numStr := strings.TrimRight(p, "abcdefghijklmnopqrstuvwxyz")
		if numStr == "" {
			nums[i] = 0
		} else {
			nums[i], _ = strconv.Atoi(numStr)
		}
	}

	return nums, suffixType, suffixNum, build
}

// compareIntSlices compares two slices of integers
func compareIntSlices(a, b []int) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}

		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareVersions compares two upstream version strings
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	nums1, suffix1, suffixNum1, build1 := parseVersion(v1)
	nums2, suffix2, suffixNum2, build2 := parseVersion(v2)

	if cmp := compareIntSlices(nums1, nums2); cmp != 0 {
		return cmp
	}

	// 1.0_1 < 1.0_2
	if cmp := compareInts(build1, build2); cmp != 0 {
		return cmp
	}

	// alpha < beta < pre < rc < release < p
	if cmp := compareInts(suffixPriority[suffix1], suffixPriority[suffix2]); cmp != 0 {
		return cmp
	}

	return compareInts(suffixNum1, suffixNum2)
}

// Newest returns the highest version of the given builds, or nil if empty
func Newest(builds []Build) *Build {
	var newest *Build
	for i := range builds {
		if newest == nil || CompareVersions(builds[i].Version, newest.Version) > 0 {
			newest = &builds[i]
		}
	}
	return newest
}
