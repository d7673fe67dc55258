package domain

import (
	"time"
	_ "time/tzdata" // artifact names depend on US/Eastern being resolvable everywhere

	"github.com/jonboulle/clockwork"
)

// Time layouts shared by descriptors, artifact names, and result listings.
const (
	DescriptorTimeLayout = "Jan-02-2006::15:04:05"
	ArtifactDateLayout   = "01-02-2006"
	ResultDateLayout     = "01/02/2006"
)

// Eastern is the zone job timestamps and artifact dates are expressed in.
var Eastern = mustLoadLocation("America/New_York")

// NowEastern reads c in US/Eastern. A nil clock reads real time.
func NowEastern(c clockwork.Clock) time.Time {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return c.Now().In(Eastern)
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
