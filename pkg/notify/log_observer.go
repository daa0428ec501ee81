package notify

import (
	"log"
)

// Writes increases, errors and state changes to the std logger.
// Counts are left to the periodic reporter.
type LogObserver struct{}

func (LogObserver) Notify(e Event) {
	switch e.Kind {
	case KindIncrease:
		log.Printf("%s subscribers increased: %d -> %d (+%d)\n", e.Target, e.Previous, e.Count, e.Delta)
	case KindError:
		if e.Fault().Fatal() {
			log.Printf("error %s, %v\n", e.Fault(), e.Err)
		} else {
			log.Printf("warning %s, %v\n", e.Fault(), e.Err)
		}
	case KindState:
		log.Printf("%s poll loop %s\n", e.Target, e.State)
	}
}
