package scanner

import (
	"time"

	"github.com/djherbis/times"

	"metarisk/risk"
)

const fallbackTimeLayout = "2006-01-02 15:04:05"

// FileTimes holds the filesystem timestamps of one file. Zero values mean the
// platform does not record that time.
type FileTimes struct {
	Birth  time.Time
	Change time.Time
	Access time.Time
	Modify time.Time
}

func fileTimes(path string) (FileTimes, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return FileTimes{}, err
	}
	result := FileTimes{
		Access: ts.AccessTime(),
		Modify: ts.ModTime(),
	}
	if ts.HasChangeTime() {
		result.Change = ts.ChangeTime()
	}
	if ts.HasBirthTime() {
		result.Birth = ts.BirthTime()
	}
	return result, nil
}

// fallbackTimestamps lists the filesystem times used as timeline candidates
// when a file carries no dated metadata. Created Date is the birth time where
// the platform keeps one and the inode change time otherwise.
func fallbackTimestamps(ft FileTimes, extractedAt time.Time) risk.Metadata {
	var md risk.Metadata
	created := ft.Birth
	if created.IsZero() {
		created = ft.Change
	}
	add := func(key string, t time.Time) {
		if t.IsZero() {
			return
		}
		md.Set(key, t.UTC().Format(fallbackTimeLayout))
	}
	add("Created Date", created)
	add("Modified Date", ft.Modify)
	add("Accessed Date", ft.Access)
	add("Extraction Date", extractedAt)
	return md
}
