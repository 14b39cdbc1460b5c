package core

import "time"

// Observer receives operational signals from the service and the hub.
// pkg/metrics provides a Prometheus implementation.
type Observer interface {
	// ObserveMutation is called after every write attempt with its outcome.
	ObserveMutation(op string, took time.Duration, err error)
	// ObserveEmission is called after a result set was delivered to a subscriber.
	ObserveEmission(size int)
	// ObserveSubscriptions reports the number of live subscriptions.
	ObserveSubscriptions(active int)
}

type nopObserver struct{}

func (nopObserver) ObserveMutation(string, time.Duration, error) {}
func (nopObserver) ObserveEmission(int)                          {}
func (nopObserver) ObserveSubscriptions(int)                     {}
