package events

import (
	"fmt"
	"slices"

	"github.com/titanous/json5"
)

// Decode parses a JSON5 request. A non-nil error is returned for messages
// that are not valid requests; the partially decoded request is still
// returned so that its id can be reported.
func Decode(message []byte) (*Request, error) {
	r := &Request{}
	if err := json5.Unmarshal(message, r); err != nil {
		return r, fmt.Errorf("failed to decode request: %w", err)
	}

	if err := r.Validate(); err != nil {
		return r, err
	}

	return r, nil
}

func (r *Request) Validate() error {
	if r.Id == "" {
		return fmt.Errorf("missing request id")
	}

	if !slices.Contains(RequestKeys, r.Id) {
		return fmt.Errorf("unknown request '%s'", r.Id)
	}

	if r.Id == AppStateChangedKey && r.State == "" {
		return fmt.Errorf("%s requires a state", AppStateChangedKey)
	}

	return nil
}
