package provider

import (
	"encoding/json"
	"time"

	"github.com/araddon/dateparse"
)

// AnyTime decodes the assorted date formats catalogs return, from bare
// years to full RFC 3339 timestamps. Unparseable values decode to zero.
type AnyTime struct {
	time.Time
}

func (t *AnyTime) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" || str == "0000-00-00" {
		return nil
	}
	if len(str) == 4 {
		parsed, err := time.Parse("2006", str)
		if err == nil {
			t.Time = parsed
		}
		return nil
	}
	parsed, err := dateparse.ParseAny(str)
	if err == nil {
		t.Time = parsed
	}
	return nil
}
