package plan

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() Settings {
	return Settings{
		EthToWrap:    big.NewInt(10),
		WethToSwap:   big.NewInt(1),
		MinWtonOut:   big.NewInt(0),
		WtonToStake:  big.NewInt(1000),
		Layer2TopUp:  big.NewInt(100),
		FeeTier:      3000,
		SwapDeadline: 20 * time.Minute,
		BlocksToMine: 10,
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(s *Settings) {}, ""},
		{"zero wrap allowed", func(s *Settings) { s.EthToWrap = big.NewInt(0) }, ""},
		{"no wrap amount", func(s *Settings) { s.EthToWrap = nil }, "eth to wrap is required"},
		{"negative wrap", func(s *Settings) { s.EthToWrap = big.NewInt(-1) }, "cannot be negative"},
		{"zero swap", func(s *Settings) { s.WethToSwap = big.NewInt(0) }, "weth to swap"},
		{"negative floor", func(s *Settings) { s.MinWtonOut = big.NewInt(-5) }, "minimum wton out"},
		{"zero stake", func(s *Settings) { s.WtonToStake = big.NewInt(0) }, "wton to stake"},
		{"no top-up", func(s *Settings) { s.Layer2TopUp = nil }, "layer2 top-up"},
		{"bad fee tier", func(s *Settings) { s.FeeTier = 2500 }, "fee tier"},
		{"no deadline", func(s *Settings) { s.SwapDeadline = 0 }, "swap deadline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)

			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Summary(t *testing.T) {
	run := &Run{
		ID:     "abc",
		Status: RunPartial,
		Steps: []Step{
			{Name: "wrap", Status: StepSucceeded},
			{Name: "swap", Status: StepFailed, Error: "reverted"},
			{Name: "mine", Status: StepSucceeded},
		},
	}

	failed := run.FailedSteps()
	require.Len(t, failed, 1)
	assert.Equal(t, "swap", failed[0].Name)

	summary := run.ToSummary()
	assert.Equal(t, 3, summary.Steps)
	assert.Equal(t, 1, summary.FailedSteps)
	assert.Equal(t, RunPartial, summary.Status)
	assert.False(t, run.IsRunning())
}

func TestRun_CloneIsIndependent(t *testing.T) {
	finished := time.Now()
	run := &Run{ID: "abc", Finished: &finished, Steps: []Step{{Name: "wrap"}}}

	c := run.clone()
	c.Steps[0].Name = "changed"
	c.Steps = append(c.Steps, Step{Name: "extra"})
	*c.Finished = finished.Add(time.Hour)

	assert.Equal(t, "wrap", run.Steps[0].Name)
	assert.Len(t, run.Steps, 1)
	assert.Equal(t, finished, *run.Finished)
}
