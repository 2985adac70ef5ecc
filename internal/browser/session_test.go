package browser

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/stretchr/testify/require"
)

func TestIsStaleClassifiesProtocolErrors(t *testing.T) {
	require.True(t, isStale(&cdp.Error{Code: -32000, Message: "Could not find node with given id"}))
	require.True(t, isStale(&cdp.Error{Code: -32000, Message: "Cannot find context with specified id"}))
	require.True(t, isStale(fmt.Errorf("eval: %w", &cdp.Error{Message: "Could not find node with given id"})))
	require.True(t, isStale(&rod.ObjectNotFoundError{}))
	require.False(t, isStale(&cdp.Error{Code: -32000, Message: "Session closed"}))
	require.False(t, isStale(&rod.ElementNotFoundError{}))
	require.False(t, isStale(context.DeadlineExceeded))
}

func TestIsNotFoundMatchesOnlyMissingElements(t *testing.T) {
	require.True(t, isNotFound(&rod.ElementNotFoundError{}))
	require.True(t, isNotFound(fmt.Errorf("race tab: %w", &rod.ElementNotFoundError{})))
	require.False(t, isNotFound(&rod.ObjectNotFoundError{}))
	require.False(t, isNotFound(context.DeadlineExceeded))
}

func TestIsTimeout(t *testing.T) {
	require.True(t, isTimeout(context.DeadlineExceeded))
	require.True(t, isTimeout(fmt.Errorf("runners container: %w", context.DeadlineExceeded)))
	require.False(t, isTimeout(&rod.ElementNotFoundError{}))
}
