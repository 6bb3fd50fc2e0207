package pagination

import (
	"math"
	"strconv"
	"testing"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
)

func TestParseDefaults(t *testing.T) {
	p, err := Parse("", "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Number != 1 || p.Limit != 10 || p.Skip != 0 {
		t.Errorf("Parse(\"\", \"\") = %+v, want page 1 limit 10 skip 0", p)
	}
}

func TestParseSkip(t *testing.T) {
	p, err := Parse("3", "7")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Skip != 14 {
		t.Errorf("Skip = %d, want 14", p.Skip)
	}
}

// TestParseRejectsInvalid checks zero, negative and non-numeric input never defaults.
func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		page, limit string
		msg         string
	}{
		{"0", "10", "Page number must be a positive integer."},
		{"-1", "10", "Page number must be a positive integer."},
		{"abc", "10", "Page number must be a positive integer."},
		{"2x", "10", "Page number must be a positive integer."},
		{"1.5", "10", "Page number must be a positive integer."},
		{"1", "0", "Limit number must be a positive integer."},
		{"1", "-5", "Limit number must be a positive integer."},
		{"1", "ten", "Limit number must be a positive integer."},
		{"99999999999999999999", "1", "Page number must be a positive integer."},
	}
	for _, tc := range cases {
		_, err := Parse(tc.page, tc.limit)
		if err == nil {
			t.Errorf("Parse(%q, %q) error = nil, want InvalidArgument", tc.page, tc.limit)
			continue
		}
		e := errordefs.As(err)
		if e.Code != errordefs.VS_VALIDATION || e.HTTPStatus != 400 {
			t.Errorf("Parse(%q, %q) = %s/%d, want VS_VALIDATION/400", tc.page, tc.limit, e.Code, e.HTTPStatus)
		}
		if e.Message != tc.msg {
			t.Errorf("Parse(%q, %q) message = %q, want %q", tc.page, tc.limit, e.Message, tc.msg)
		}
	}
}

func TestParseOverflow(t *testing.T) {
	if _, err := Parse(strconv.FormatInt(math.MaxInt64, 10), "2"); err == nil {
		t.Error("Parse() with overflowing skip should fail")
	}
}

// TestTotalPagesIsCeil checks totalPages == ceil(count/limit) over a grid of inputs.
func TestTotalPagesIsCeil(t *testing.T) {
	for limit := int64(1); limit <= 12; limit++ {
		for total := int64(0); total <= 50; total++ {
			p := Page{Number: 1, Limit: limit}
			want := int64(math.Ceil(float64(total) / float64(limit)))
			if got := p.TotalPages(total); got != want {
				t.Fatalf("TotalPages(total=%d, limit=%d) = %d, want %d", total, limit, got, want)
			}
		}
	}
}

func TestResultAndQuery(t *testing.T) {
	p, err := Parse("2", "5")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res := p.Result(11); p.Skip != 5 || res.CurrentPage != 2 || res.TotalPages != 3 {
		t.Errorf("Result() = %+v for %+v", res, p)
	}
	if q := p.Query(); q.Skip != 5 || q.Limit != 5 {
		t.Errorf("Query() = %+v", q)
	}
}
