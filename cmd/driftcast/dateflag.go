package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// dateValue is a pflag.Value for YYYY-MM-DD flags.
type dateValue struct {
	t   time.Time
	set bool
}

var _ pflag.Value = (*dateValue)(nil)

func newDateValue() *dateValue { return &dateValue{} }

func (d *dateValue) String() string {
	if !d.set {
		return ""
	}
	return d.t.Format("2006-01-02")
}

func (d *dateValue) Set(s string) error {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	d.t = t
	d.set = true
	return nil
}

func (d *dateValue) Type() string { return "date" }

// dateFlag reads a date flag back out of a command, reporting whether it was
// set.
func dateFlag(flags *pflag.FlagSet, name string) (time.Time, bool) {
	f := flags.Lookup(name)
	if f == nil {
		return time.Time{}, false
	}
	dv, ok := f.Value.(*dateValue)
	if !ok || !dv.set {
		return time.Time{}, false
	}
	return dv.t, true
}
