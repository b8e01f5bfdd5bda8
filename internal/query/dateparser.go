package query

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/amirbrooks/taskline/internal/caldate"
)

// DateParser resolves the date part of an instruction to a single day.
type DateParser interface {
	ParseDate(expr string) caldate.Date
}

// NaturalDateParser reads YYYY-MM-DD dates and English phrases such as
// "today", "next friday" or "in 2 weeks", relative to Now.
type NaturalDateParser struct {
	now func() time.Time
	w   *when.Parser
}

func NewNaturalDateParser(now func() time.Time) *NaturalDateParser {
	if now == nil {
		now = time.Now
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &NaturalDateParser{now: now, w: w}
}

// ParseDate returns an invalid date when expr cannot be read.
func (p *NaturalDateParser) ParseDate(expr string) caldate.Date {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return caldate.Invalid(expr)
	}
	if d := caldate.Parse(expr); d.IsValid() {
		return d
	}
	r, err := p.w.Parse(strings.ToLower(expr), p.now())
	if err != nil || r == nil {
		return caldate.Invalid(expr)
	}
	return caldate.FromTime(r.Time)
}
