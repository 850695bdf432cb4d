package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		local      int64
		remote     *int64
		wantTarget int64
		wantReason Reason
		wantErr    error
	}{
		{name: "empty local", local: 0, remote: ptr[int64](1200), wantTarget: 1200, wantReason: ReasonBehind},
		{name: "behind", local: 800, remote: ptr[int64](1000), wantTarget: 200, wantReason: ReasonBehind},
		{name: "up to date", local: 1000, remote: ptr[int64](1000), wantTarget: 0, wantReason: ReasonUpToDate},
		{name: "both empty", local: 0, remote: ptr[int64](0), wantTarget: 0, wantReason: ReasonUpToDate},
		{name: "drift downloads everything", local: 100, remote: ptr[int64](60), wantTarget: 60, wantReason: ReasonDrift},
		{name: "drift to empty remote", local: 5, remote: ptr[int64](0), wantTarget: 0, wantReason: ReasonDrift},
		{name: "missing remote count", local: 10, remote: nil, wantErr: ErrRemoteCountUnavailable},
		{name: "negative remote count", local: 10, remote: ptr[int64](-1), wantErr: ErrRemoteCountUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan, err := Reconcile(tt.local, tt.remote)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, KindRemoteCountUnavailable, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, plan.Target)
			assert.Equal(t, tt.wantReason, plan.Reason)
			assert.Equal(t, tt.local, plan.Local)
			assert.Equal(t, *tt.remote, plan.Remote)
		})
	}
}
