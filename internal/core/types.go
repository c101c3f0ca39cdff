package core

import "time"

const (
	AppName      = "airbot"
	AppUserAgent = "airbot/0.1"
	AppVersion   = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// KST is the store-local zone. Every timestamp is moved into it before
// comparison, so instants never mix offsets.
var KST = time.FixedZone("KST", 9*60*60)

// Clock returns the current store-local time.
type Clock func() time.Time

func Now() time.Time {
	return time.Now().In(KST)
}

// TimeLayout is the normalized candidate format.
const TimeLayout = "2006-01-02 15:04"
