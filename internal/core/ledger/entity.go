package ledger

import (
	"fmt"
	"time"
)

const (
	dayLayout  = "2006-01-02"
	hourLayout = "2006-01-02_15"
)

// Granularity is the dedup window of a notification kind
type Granularity int

const (
	GranularityDaily Granularity = iota
	GranularityHourly
)

func (g Granularity) String() string {
	if g == GranularityHourly {
		return "hourly"
	}
	return "daily"
}

func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// PeriodKey renders t in the window of g, e.g. "2024-01-01" or "2024-01-01_14".
// The caller is responsible for t's location.
func PeriodKey(g Granularity, t time.Time) string {
	if g == GranularityHourly {
		return t.Format(hourLayout)
	}
	return t.Format(dayLayout)
}

// Key identifies one logical send
type Key struct {
	RecipientID string
	Kind        string
	PeriodKey   string
}

func NewKey(recipientID, kind string, g Granularity, t time.Time) Key {
	return Key{RecipientID: recipientID, Kind: kind, PeriodKey: PeriodKey(g, t)}
}

// cacheKey is the lookup string in the fast-path cache. It is never parsed back.
func (k Key) cacheKey() string {
	return fmt.Sprintf("sent:%d:%s:%s:%s", len(k.RecipientID), k.RecipientID, k.Kind, k.PeriodKey)
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.RecipientID, k.Kind, k.PeriodKey)
}
