package cmd

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wton-stake/pkg/plan"
	"wton-stake/pkg/token"
	"wton-stake/pkg/types"
)

func TestAmountArg(t *testing.T) {
	fallback := big.NewInt(42)

	v, err := amountArg(nil, token.EtherDecimals, fallback)
	require.NoError(t, err)
	assert.Same(t, fallback, v)

	v, err = amountArg([]string{"1.5"}, token.EtherDecimals, fallback)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", v.String())

	_, err = amountArg([]string{"abc"}, token.EtherDecimals, fallback)
	assert.Error(t, err)
}

func newFlagCmd(t *testing.T, name string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: name}
	cmd.Flags().Bool("yes", false, "")
	cmd.Flags().Bool("json", false, "")
	return cmd
}

// withStdin replaces the prompt input for the duration of the test
func withStdin(t *testing.T, r io.Reader, isTerminal bool) {
	t.Helper()

	prevStdin, prevInteractive := stdin, interactive
	stdin = r
	interactive = func() bool { return isTerminal }
	t.Cleanup(func() {
		stdin, interactive = prevStdin, prevInteractive
	})
}

// readCounter counts how often the prompt input is read
type readCounter struct {
	reads int
}

func (r *readCounter) Read(p []byte) (int, error) {
	r.reads++
	return 0, io.EOF
}

func TestConfirmSkipped(t *testing.T) {
	input := &readCounter{}
	withStdin(t, input, false)

	yes := newFlagCmd(t, "swap")
	require.NoError(t, yes.Flags().Set("yes", "true"))
	assert.NoError(t, confirm(yes, "Proceed?"))

	jsonCmd := newFlagCmd(t, "swap")
	require.NoError(t, jsonCmd.Flags().Set("json", "true"))
	assert.NoError(t, confirm(jsonCmd, "Proceed?"))

	assert.Zero(t, input.reads)
}

func TestConfirmAnswers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"yes", "y\n", nil},
		{"full yes", "YES\n", nil},
		{"yes without newline", "y", nil},
		{"no", "n\n", errCancelled},
		{"empty line", "\n", errCancelled},
		{"end of input", "", errCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withStdin(t, strings.NewReader(tt.input), true)

			err := confirm(newFlagCmd(t, "deposit"), "Proceed?")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 1, ExitCode(err))
			}
		})
	}
}

func TestConfirmNonInteractive(t *testing.T) {
	input := &readCounter{}
	withStdin(t, input, false)

	err := confirm(newFlagCmd(t, "deposit"), "Proceed?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Equal(t, 1, ExitCode(err))
	assert.Zero(t, input.reads)
}

func TestRunDoesNotPrompt(t *testing.T) {
	input := &readCounter{}
	withStdin(t, input, false)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("WTON_STAKE_RPC_URL", "http://127.0.0.1:1")
	t.Setenv("WTON_STAKE_PLAN_STORAGE_PATH", filepath.Join(t.TempDir(), "runs.json"))

	// The node is unreachable, so the run fails before any step
	err := runRun(newFlagCmd(t, "run"), nil)
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	assert.Zero(t, input.reads)
}

func TestRunExitCode(t *testing.T) {
	tests := []struct {
		name   string
		status plan.RunStatus
		err    error
		want   int
	}{
		{"completed", plan.RunCompleted, nil, 0},
		{"partial", plan.RunPartial, nil, 2},
		{"failed", plan.RunFailed, nil, 1},
		{"aborted with error", plan.RunFailed, errors.New("mine phase failed"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &plan.Run{ID: "run-1", Status: tt.status}

			assert.Equal(t, tt.want, runExitCode(run, tt.err))

			err := runResultError(run, tt.err)
			assert.Equal(t, tt.want, ExitCode(err))
			if tt.want == 0 {
				assert.NoError(t, err)
			}
		})
	}

	assert.Equal(t, 1, runExitCode(nil, nil))
	assert.Equal(t, 1, ExitCode(runResultError(nil, nil)))
	assert.Equal(t, 1, ExitCode(runResultError(nil, errors.New("dial failed"))))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(fmt.Errorf("wrapped: %w", &exitError{code: 2, err: errors.New("partial")})))
}

func TestStatusRejectsNonPositiveInterval(t *testing.T) {
	prevWatch, prevInterval := watchStatus, watchInterval
	t.Cleanup(func() { watchStatus, watchInterval = prevWatch, prevInterval })

	hash := "0x" + strings.Repeat("ab", 32)
	for _, interval := range []int{0, -5} {
		watchStatus, watchInterval = true, interval

		err := runStatus(newFlagCmd(t, "status"), []string{hash})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interval")
	}
}

func TestStatusRejectsBadHash(t *testing.T) {
	err := runStatus(newFlagCmd(t, "status"), []string{"0x1234"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transaction hash")
}

func TestJournalInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	manager, err := plan.NewManager(path)
	require.NoError(t, err)

	_, err = manager.StartRun(31337, "0xabc", "")
	require.NoError(t, err)

	info := journalInfo(manager)
	assert.Contains(t, info, path)
	assert.Contains(t, info, "1 runs recorded")
}

func TestTokenCheckMatches(t *testing.T) {
	decimals := uint8(27)
	check := tokenCheck{Token: token.WTON, ChainSymbol: "WTON", ChainDecimals: &decimals}
	assert.True(t, check.matches())

	wrong := uint8(18)
	check.ChainDecimals = &wrong
	assert.False(t, check.matches())

	assert.False(t, tokenCheck{Token: token.WTON}.matches())
	assert.False(t, tokenCheck{Token: token.WTON, Error: "boom"}.matches())
}

func TestGetColoredStatus(t *testing.T) {
	ok, reverted := uint64(1), uint64(0)

	assert.Contains(t, getColoredStatus(&types.TxInfo{Pending: true}), "PENDING")
	assert.Contains(t, getColoredStatus(&types.TxInfo{Status: &ok}), "SUCCESS")
	assert.Contains(t, getColoredStatus(&types.TxInfo{Status: &reverted}), "REVERTED")
	assert.Equal(t, "UNKNOWN", getColoredStatus(&types.TxInfo{}))
}

func TestPhaseTitle(t *testing.T) {
	for _, phase := range []plan.Phase{plan.PhaseSwap, plan.PhaseDeposit, plan.PhaseMine, plan.PhaseSeigniorage} {
		title := phaseTitle(phase)
		assert.NotEmpty(t, title)
		assert.Equal(t, strings.ToUpper(title), title)
	}
	assert.Equal(t, "other", phaseTitle(plan.Phase("other")))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"run", "wrap", "swap", "quote", "deposit", "mine", "seigniorage", "balances", "list-tokens", "status", "runs"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
