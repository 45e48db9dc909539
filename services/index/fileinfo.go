package index

import "time"

type timestamps struct {
	created  time.Time
	accessed time.Time
}
