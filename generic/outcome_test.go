package generic_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/pool-engine/generic"
)

func TestOutcome_Envelopes(t *testing.T) {
	softKind := generic.Kind{Key: "REDUCE_DATE_MESSAGE", Message: "confirm?"}

	tests := []struct {
		name    string
		outcome generic.Outcome
		want    generic.Envelope
	}{
		{
			name:    "accept",
			outcome: generic.Accept{Kind: generic.Kind{Key: "OK", Message: "done"}},
			want:    generic.Envelope{Success: true, Message: "done", TranslationKey: "OK"},
		},
		{
			name:    "soft reject opens a dialogue",
			outcome: generic.SoftReject{Kind: softKind},
			want:    generic.Envelope{Dialogue: true, Message: "confirm?", TranslationKey: "REDUCE_DATE_MESSAGE"},
		},
		{
			name:    "hard reject with detail-only kind",
			outcome: generic.HardReject{Kind: generic.Kind{Key: "POOL_DATES_OVERLAPS"}, Detail: "a overlaps b"},
			want:    generic.Envelope{Message: "a overlaps b", TranslationKey: "POOL_DATES_OVERLAPS"},
		},
		{
			name:    "hard reject keeps detail as api error",
			outcome: generic.HardReject{Kind: generic.KindInvalidDateFormat, Detail: "bad"},
			want: generic.Envelope{
				Message:        generic.KindInvalidDateFormat.Message,
				TranslationKey: "INVALID_DATE_FORMAT",
				APIError:       "bad",
			},
		},
		{
			name:    "not found",
			outcome: generic.NotFound{Kind: generic.KindPoolNotFound},
			want:    generic.Envelope{Message: "Pool not found.", TranslationKey: "POOL_NOT_FOUND"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Envelope())
			assert.Equal(t, tt.want.Success, tt.outcome.Success())
			assert.Equal(t, tt.want.Dialogue, tt.outcome.RequiresConfirmation())
			assert.Equal(t, tt.want.TranslationKey, tt.outcome.TranslationKey())
		})
	}
}

func TestOutcomeFromError(t *testing.T) {
	_, formatErr := generic.ParseDate("2024-99-99")

	assert.Equal(t, generic.KindInvalidDateFormat, generic.OutcomeFromError(formatErr).(generic.HardReject).Kind)
	assert.Equal(t, generic.HardReject{Kind: generic.KindStartAfterEnd}, generic.OutcomeFromError(generic.ErrInvalidRange))
	assert.Equal(t, generic.NotFound{Kind: generic.KindNoRulesFound}, generic.OutcomeFromError(fmt.Errorf("load: %w", generic.ErrNoRulesFound)))
	assert.Equal(t, generic.NotFound{Kind: generic.KindPoolNotFound}, generic.OutcomeFromError(generic.ErrPoolNotFound))

	upstream := &generic.UpstreamError{Op: "check bookings", Err: errors.New("connection refused")}
	o := generic.OutcomeFromError(upstream)
	assert.Equal(t, generic.KindUpstream, o.(generic.HardReject).Kind)
	assert.True(t, generic.IsInternal(o))

	internal := generic.OutcomeFromError(errors.New("boom"))
	assert.Equal(t, generic.HardReject{Kind: generic.KindInternal, Detail: "boom"}, internal)
	assert.Equal(t, "boom", internal.Envelope().Message)
	assert.True(t, generic.IsInternal(internal))
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, generic.IsClientError(fmt.Errorf("wrap: %w", generic.ErrPastDate)))
	assert.False(t, generic.IsClientError(generic.ErrPoolNotFound))
	assert.True(t, generic.IsNotFound(generic.ErrNoRulesFound))

	upstream := &generic.UpstreamError{Op: "op", Err: errors.New("x")}
	assert.ErrorIs(t, upstream, generic.ErrUpstream)
}
