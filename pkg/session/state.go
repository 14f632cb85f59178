package session

import (
	"strconv"
	"strings"

	"github.com/itohio/godaq/pkg/config"
	"github.com/itohio/godaq/pkg/table"
)

// State is a recording session state.
type State int

const (
	Idle State = iota
	AwaitingReady
	Ready
	Recording
	Completed
	TimedOut
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case AwaitingReady:
		return "AWAITING_READY"
	case Ready:
		return "READY"
	case Recording:
		return "RECORDING"
	case Completed:
		return "COMPLETED"
	case TimedOut:
		return "TIMEOUT"
	case Aborted:
		return "ABORTED"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether no further transitions can happen from s.
func (s State) Terminal() bool {
	return s == Completed || s == TimedOut || s == Aborted
}

// Kind is the classification of a single framed line.
type Kind int

const (
	KindEmpty Kind = iota
	KindReady
	KindAck
	KindComplete
	KindEnd
	KindCount
	KindHeader
	KindData
	KindNoise
)

var kindNames = [...]string{"empty", "ready", "ack", "complete", "end", "count", "header", "data", "noise"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Classifier decides what a device line means. Markers are exact, case
// sensitive matches against the trimmed line.
type Classifier struct {
	Markers config.SessionConfig
	Schema  table.Schema
}

// Classify returns the kind of text.
func (c Classifier) Classify(text string) Kind {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return KindEmpty
	case text == c.Markers.ReadyMarker:
		return KindReady
	case text == c.Markers.StartAck:
		return KindAck
	case text == c.Markers.CompleteMarker:
		return KindComplete
	case text == c.Markers.EndMarker:
		return KindEnd
	case c.Schema.IsHeader(text):
		return KindHeader
	}

	if _, _, ok := ParseCount(text); ok {
		return KindCount
	}
	if looksLikeData(text, c.Schema.Width()) {
		return KindData
	}
	return KindNoise
}

// ParseCount parses a diagnostic marker of the form LABEL:<integer>.
// LABEL is upper case letters, digits and underscores, starting with a letter.
func ParseCount(text string) (label string, value int, ok bool) {
	label, num, found := strings.Cut(strings.TrimSpace(text), ":")
	if !found || label == "" || label[0] < 'A' || label[0] > 'Z' {
		return "", 0, false
	}
	for _, r := range label {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return "", 0, false
		}
	}
	v, err := strconv.Atoi(num)
	if err != nil {
		return "", 0, false
	}
	return label, v, true
}

// looksLikeData reports whether text has exactly width comma separated fields
// made of number-like characters. Real numeric parsing happens in the cleaner.
func looksLikeData(text string, width int) bool {
	if strings.Count(text, ",") != width-1 {
		return false
	}
	for field := range strings.SplitSeq(text, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			return false
		}
		for _, r := range field {
			if !strings.ContainsRune("0123456789+-.eE", r) {
				return false
			}
		}
	}
	return true
}
