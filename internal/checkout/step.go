package checkout

import "fmt"

type Step int

const (
	StepShipping Step = iota + 1
	StepPayment
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func ParseStep(v string) (Step, error) {
	switch v {
	case "shipping":
		return StepShipping, nil
	case "payment":
		return StepPayment, nil
	case "review":
		return StepReview, nil
	default:
		return 0, fmt.Errorf("unknown checkout step %q", v)
	}
}

// NextAction is the label of the primary button on each step.
func (s Step) NextAction() string {
	switch s {
	case StepShipping:
		return "Continue to Payment"
	case StepPayment:
		return "Review Order"
	default:
		return "Place Order"
	}
}
