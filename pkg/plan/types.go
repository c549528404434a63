package plan

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Phase is one stage of a run
type Phase string

const (
	PhaseSwap        Phase = "swap"        // Wrap ETH and swap WETH for WTON
	PhaseDeposit     Phase = "deposit"     // Stake WTON with the deposit manager
	PhaseMine        Phase = "mine"        // Advance the dev chain
	PhaseSeigniorage Phase = "seigniorage" // Accrue rewards as the layer2
)

// RunStatus defines the current state of a run
type RunStatus string

const (
	RunRunning   RunStatus = "running"   // Run in progress
	RunCompleted RunStatus = "completed" // Every step succeeded
	RunPartial   RunStatus = "partial"   // A tolerated phase failed, on-chain state may be inconsistent
	RunFailed    RunStatus = "failed"    // Run aborted
)

// StepStatus defines the outcome of a single step
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// ValidFeeTiers are the fee tiers pools are deployed with
var ValidFeeTiers = []int64{100, 500, 3000, 10000}

// Settings are the amounts and targets of a run
type Settings struct {
	EthToWrap    *big.Int      // wei
	WethToSwap   *big.Int      // WETH base units
	MinWtonOut   *big.Int      // floor for the swap's minimum output
	WtonToStake  *big.Int      // WTON base units
	Layer2TopUp  *big.Int      // wei set on the layer2 before it is impersonated
	FeeTier      int64         // hundredths of a bip
	SwapDeadline time.Duration // validity window of the swap
	BlocksToMine uint64
	Layer2       common.Address // zero means resolve from the registry
	Layer2Index  uint64
}

// Validate checks if the settings have valid parameters
func (s *Settings) Validate() error {
	if err := nonNegative("eth to wrap", s.EthToWrap); err != nil {
		return err
	}
	if s.WethToSwap == nil || s.WethToSwap.Sign() <= 0 {
		return fmt.Errorf("weth to swap must be greater than 0")
	}
	if err := nonNegative("minimum wton out", s.MinWtonOut); err != nil {
		return err
	}
	if s.WtonToStake == nil || s.WtonToStake.Sign() <= 0 {
		return fmt.Errorf("wton to stake must be greater than 0")
	}
	if err := nonNegative("layer2 top-up", s.Layer2TopUp); err != nil {
		return err
	}
	if !validFeeTier(s.FeeTier) {
		return fmt.Errorf("fee tier must be one of %v, got %d", ValidFeeTiers, s.FeeTier)
	}
	if s.SwapDeadline <= 0 {
		return fmt.Errorf("swap deadline must be positive")
	}
	return nil
}

func nonNegative(name string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%s is required", name)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%s cannot be negative", name)
	}
	return nil
}

func validFeeTier(fee int64) bool {
	for _, t := range ValidFeeTiers {
		if t == fee {
			return true
		}
	}
	return false
}

// Step is one recorded action of a run
type Step struct {
	Phase     Phase      `json:"phase"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	Detail    string     `json:"detail,omitempty"`  // Human readable result
	TxHash    string     `json:"tx_hash,omitempty"` // Transaction sent by the step
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Run is one execution of the wrap, swap, stake and accrue sequence
type Run struct {
	ID       string     `json:"id"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished,omitempty"`
	Status   RunStatus  `json:"status"`
	ChainID  int64      `json:"chain_id"`
	Account  string     `json:"account"`
	Layer2   string     `json:"layer2,omitempty"`
	Steps    []Step     `json:"steps"`
}

// FailedSteps returns the steps that did not succeed
func (r *Run) FailedSteps() []Step {
	var failed []Step
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// IsRunning returns true if the run has not finished
func (r *Run) IsRunning() bool {
	return r.Status == RunRunning
}

func (r *Run) clone() *Run {
	c := *r
	c.Steps = append([]Step(nil), r.Steps...)
	if r.Finished != nil {
		f := *r.Finished
		c.Finished = &f
	}
	return &c
}

// RunSummary provides a simplified view of a run for listing
type RunSummary struct {
	ID          string    `json:"id"`
	Status      RunStatus `json:"status"`
	Started     time.Time `json:"started"`
	Steps       int       `json:"steps"`
	FailedSteps int       `json:"failed_steps"`
	Account     string    `json:"account"`
}

// ToSummary converts a Run to a RunSummary
func (r *Run) ToSummary() *RunSummary {
	return &RunSummary{
		ID:          r.ID,
		Status:      r.Status,
		Started:     r.Started,
		Steps:       len(r.Steps),
		FailedSteps: len(r.FailedSteps()),
		Account:     r.Account,
	}
}
