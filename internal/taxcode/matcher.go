package taxcode

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const DefaultMatchThreshold = 70

// Legal-entity phrases and their canonical abbreviations, longest first.
// CTCP expands so it compares equal to CÔNG TY CỔ PHẦN.
var abbreviations = []struct{ long, short string }{
	{"TRÁCH NHIỆM HỮU HẠN", "TNHH"},
	{"TRACH NHIEM HUU HAN", "TNHH"},
	{"DOANH NGHIỆP TƯ NHÂN", "DNTN"},
	{"DOANH NGHIEP TU NHAN", "DNTN"},
	{"XUẤT NHẬP KHẨU", "XNK"},
	{"XUAT NHAP KHAU", "XNK"},
	{"MỘT THÀNH VIÊN", "MTV"},
	{"MOT THANH VIEN", "MTV"},
	{"1 THÀNH VIÊN", "MTV"},
	{"1 THANH VIEN", "MTV"},
	{"CTCP", "CTY CP"},
	{"THƯƠNG MẠI", "TM"},
	{"THUONG MAI", "TM"},
	{"CÔNG TY", "CTY"},
	{"CONG TY", "CTY"},
	{"CỔ PHẦN", "CP"},
	{"CO PHAN", "CP"},
	{"DỊCH VỤ", "DV"},
	{"DICH VU", "DV"},
	{"SẢN XUẤT", "SX"},
	{"SAN XUAT", "SX"},
	{"CHI NHÁNH", "CN"},
	{"CHI NHANH", "CN"},
	{"XÂY DỰNG", "XD"},
	{"XAY DUNG", "XD"},
}

// MatchResult is the comparison of a typed name with a registered one.
type MatchResult struct {
	IsMatch bool `json:"is_match"`
	Score   int  `json:"score"`
}

// Matcher scores company names after normalization.
type Matcher struct {
	Threshold int
}

func NewMatcher(threshold int) Matcher {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return Matcher{Threshold: threshold}
}

// Match scores 100 for equal normalized names, 90 when one contains the other,
// and a Levenshtein similarity otherwise.
func (m Matcher) Match(input, registered string) MatchResult {
	threshold := m.Threshold
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}

	a, b := NormalizeName(input), NormalizeName(registered)
	var score int
	switch {
	case a == "" || b == "":
		score = 0
	case a == b:
		score = 100
	case strings.Contains(a, b) || strings.Contains(b, a):
		score = 90
	default:
		score = similarity(a, b)
	}
	return MatchResult{IsMatch: score >= threshold, Score: score}
}

// MatchRegistered compares input with both the registered full and short names
// and keeps the better score.
func (m Matcher) MatchRegistered(input string, res LookupResult) MatchResult {
	best := m.Match(input, res.Name)
	if res.ShortName != "" {
		if alt := m.Match(input, res.ShortName); alt.Score > best.Score {
			best = alt
		}
	}
	return best
}

// NormalizeName upper-cases, canonicalizes legal-entity phrases, drops
// punctuation and collapses whitespace.
func NormalizeName(s string) string {
	// Casers carry state and are not shared between goroutines.
	s = cases.Upper(language.Vietnamese).String(norm.NFC.String(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return -1
		}
		return ' '
	}, s)
	s = " " + strings.Join(strings.Fields(s), " ") + " "

	for _, a := range abbreviations {
		from, to := " "+a.long+" ", " "+a.short+" "
		for strings.Contains(s, from) {
			s = strings.ReplaceAll(s, from, to)
		}
	}
	return strings.TrimSpace(s)
}

func similarity(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein(ra, rb)
	return int(math.Round(float64(maxLen-dist) / float64(maxLen) * 100))
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
