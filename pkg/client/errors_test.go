package client

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	budgetErr := &BudgetExhaustedError{ErrorCount: 95}
	assert.Contains(t, budgetErr.Error(), "95/100")

	statusErr := &UpstreamStatusError{StatusCode: 404, Endpoint: "/universe/types/0/"}
	assert.Contains(t, statusErr.Error(), "404")
	assert.Contains(t, statusErr.Error(), "/universe/types/0/")
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	transportErr := &TransportError{Endpoint: "/status/", Err: cause}

	var opErr *net.OpError
	assert.ErrorAs(t, transportErr, &opErr)
}

func TestErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("fetch page 2/5 of /contracts/: %w", &UpstreamStatusError{StatusCode: 502, Endpoint: "/contracts/"})

	var statusErr *UpstreamStatusError
	assert.ErrorAs(t, wrapped, &statusErr)
	assert.Equal(t, 502, statusErr.StatusCode)
}
