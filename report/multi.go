package report

import "github.com/SvenDH/go-circle-evolution/evolution"

// Multi fans every event out to its members in order.
type Multi []evolution.Reporter

func (m Multi) Report(ev evolution.Event) {
	for _, r := range m {
		if r != nil {
			r.Report(ev)
		}
	}
}
