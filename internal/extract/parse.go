package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"forze-tracker/internal/domain"

	"github.com/cockroachdb/errors"
)

var (
	dateRe  = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2})$`)
	scoreRe = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	numRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

var (
	errDateFormat = errors.New("expected DD/MM/YY")
	errNoDate     = errors.New("no such calendar date")
	errScore      = errors.New("expected N-N")
	errTie        = errors.New("tied score has no winner")
)

// ParseDate reads DD/MM/YY as a UTC date in 20YY. Inputs that do not name a
// real calendar day are rejected rather than normalized.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, &domain.ParseError{Field: "date", Input: s, Err: errDateFormat}
	}
	dd, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	yy, _ := strconv.Atoi(m[3])

	t := time.Date(2000+yy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if t.Day() != dd || int(t.Month()) != mm {
		return time.Time{}, &domain.ParseError{Field: "date", Input: s, Err: errNoDate}
	}
	return t, nil
}

// ParseScore returns the two sides of "our - opp". Ties are rejected because
// the outcome is always derived from the scores.
func ParseScore(s string) (our, opp int, err error) {
	m := scoreRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, &domain.ParseError{Field: "score", Input: s, Err: errScore}
	}
	our, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, &domain.ParseError{Field: "score", Input: s, Err: err}
	}
	opp, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, &domain.ParseError{Field: "score", Input: s, Err: err}
	}
	if our == opp {
		return 0, 0, &domain.ParseError{Field: "score", Input: s, Err: errTie}
	}
	return our, opp, nil
}

// firstNumber pulls the leading numeric token out of labels such as
// "Level 10" or "57.1%".
func firstNumber(s string) (float64, bool) {
	tok := numRe.FindString(s)
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	return v, err == nil
}
