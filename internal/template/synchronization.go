package template

import (
	"fmt"

	"github.com/me/argowf/pkg/argo"
)

// Kind selects a synchronization primitive.
type Kind string

// KindSemaphore is a counting semaphore whose limit lives in a ConfigMap key.
const KindSemaphore Kind = "semaphore"

// UnsupportedKindError is returned for synchronization kinds other than
// semaphore.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported synchronization kind %q", e.Kind)
}

// NewSynchronization declares a lock shared by every workflow that names the
// same ConfigMap key. optional may be nil to leave the selector default.
func NewSynchronization(kind Kind, configMapKey, configMapName string, optional *bool) (*argo.Synchronization, error) {
	switch kind {
	case KindSemaphore:
		return &argo.Synchronization{
			Semaphore: &argo.SemaphoreRef{
				ConfigMapKeyRef: &argo.ConfigMapKeySelector{
					Name:     configMapName,
					Key:      configMapKey,
					Optional: optional,
				},
			},
		}, nil
	default:
		return nil, &UnsupportedKindError{Kind: kind}
	}
}
