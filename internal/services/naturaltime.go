package services

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/prizm-dev/prizm/internal/types"
)

// naturalTimeParser resolves freeform phrases like "tomorrow at 5pm" or
// "in 2 hours" to a concrete instant, so schedule items can be created
// from the kind of text an agent or a chat message actually contains
// instead of requiring a caller to pre-compute a Unix timestamp.
var naturalTimeParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseNaturalTime parses text relative to now and returns the resolved
// instant in epoch milliseconds. InvalidInput is returned if no time
// expression is recognized.
func ParseNaturalTime(text string, now time.Time) (int64, error) {
	r, err := naturalTimeParser.Parse(text, now)
	if err != nil {
		return 0, err
	}
	if r == nil {
		return 0, &InvalidInput{Field: "when", Reason: "no recognizable time expression in " + quote(text)}
	}
	return r.Time.UnixMilli(), nil
}

func quote(s string) string {
	return "\"" + s + "\""
}

// CreateFromText builds a schedule item by resolving whenText through
// ParseNaturalTime instead of requiring a precomputed StartTime, e.g. for
// a chat message like "remind me tomorrow at 5pm to call the vet".
func (sv *ScheduleService) CreateFromText(sessionID, title, whenText string, kind types.ScheduleItemType) (*types.ScheduleItem, error) {
	startTime, err := ParseNaturalTime(whenText, time.Now())
	if err != nil {
		return nil, err
	}
	return sv.Create(sessionID, &types.ScheduleItem{
		Title:     title,
		Type:      kind,
		StartTime: startTime,
	})
}
