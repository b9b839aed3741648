package decomposition

import "fmt"

// Kind names the half of the decomposition that was rejected.
type Kind string

const (
	KindTasks  Kind = "tasks"
	KindSkills Kind = "skills"
)

// InvalidDecompositionError means a decomposition response failed schema or
// weight checks. The request is rejected with no partial data.
type InvalidDecompositionError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *InvalidDecompositionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s decomposition: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid %s decomposition: %s", e.Kind, e.Message)
}

func (e *InvalidDecompositionError) Unwrap() error {
	return e.Cause
}
