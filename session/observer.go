package session

// Op names a store operation that reaches the identity endpoint.
type Op string

const (
	OpLogin   Op = "login"
	OpSignUp  Op = "sign_up"
	OpRefresh Op = "refresh"
)

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRejected    Outcome = "rejected"    // The endpoint returned an error code
	OutcomeUnavailable Outcome = "unavailable" // Transport or unexpected response
	OutcomeSuperseded  Outcome = "superseded"
	OutcomeCancelled   Outcome = "cancelled"
)

// Observer is told the outcome of every Login, SignUp and Refresh.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(op Op, outcome Outcome)
}

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithObserver reports operation outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}
