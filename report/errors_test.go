package report

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestNativeIgnoresStatusCodes(t *testing.T) {
	require.NoError(t, Native("vkWaitForFences", 0, nil))
	require.NoError(t, Native("vkAcquireNextImageKHR", 1000001003, nil))
}

func TestClassify(t *testing.T) {
	native := Native("vkCreateFence", -1, errors.New("out of host memory"))
	require.Error(t, native)

	var nativeErr *NativeError
	require.True(t, errors.As(native, &nativeErr))
	require.Equal(t, "vkCreateFence", nativeErr.Op)
	require.Equal(t, -1, nativeErr.Code)

	cases := []struct {
		name string
		err  error
		kind Kind
		sev  Severity
	}{
		{"native", native, KindNative, Fatal},
		{"allocation", Allocation(native), KindAllocation, Fatal},
		{"capability", Capability("no present queue on %s", "gpu0"), KindCapability, Fatal},
		{"stale", Stale(native), KindStale, Warn},
		{"bare stale", Stale(nil), KindStale, Warn},
		{"timeout", Timeout("vkWaitForFences"), KindTimeout, Warn},
		{"wrapped stale", errors.Wrap(Stale(nil), "draw frame"), KindStale, Warn},
		{"other", errors.New("shader file missing"), KindOther, Fatal},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.kind, Classify(c.err))
			require.Equal(t, c.sev, SeverityOf(c.err))
			require.Equal(t, c.kind == KindStale || c.kind == KindTimeout, Recoverable(c.err))
		})
	}

	require.Equal(t, KindOther, Classify(nil))
	require.Equal(t, Info, SeverityOf(nil))
}

func TestStaleKeepsCause(t *testing.T) {
	cause := Native("vkQueuePresentKHR", -1000001004, nil)
	err := Stale(cause)
	require.True(t, IsStale(err))
	require.False(t, IsTimeout(err))

	var nativeErr *NativeError
	require.True(t, errors.As(err, &nativeErr))
	require.Equal(t, "vkQueuePresentKHR", nativeErr.Op)
}
