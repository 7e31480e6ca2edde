package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetCLI clears flag state between Execute calls: pflag only overwrites
// values for flags present in the new argument list.
func resetCLI() {
	flagProdCon, flagDiners, flagBrewers = false, false, false
	flagProducers, flagConsumers = 0, 0
	flagConfig = ""
	rootCmd.Flags().Visit(func(f *pflag.Flag) { f.Changed = false })
}

// fastProfile writes a timing profile that keeps scenario runs to a few
// milliseconds per cycle, so CLI tests that actually run an engine are quick.
func fastProfile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parlour.yml")
	profile := `timing:
  max_worker_sleep_ms: 2
  think_min_ms: 0
  think_max_ms: 2
  eat_min_ms: 0
  eat_max_ms: 2
  brew_min_ms: 0
  brew_max_ms: 2
`
	require.NoError(t, os.WriteFile(path, []byte(profile), 0644))
	return path
}

func runCLI(t *testing.T, timeout time.Duration, args ...string) error {
	t.Helper()
	resetCLI()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return ExecuteContextArgs(ctx, args)
}

func TestCLI_NoArgsPrintsUsageAndFails(t *testing.T) {
	err := runCLI(t, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mode chosen")
}

func TestCLI_ProdConRequiresPositiveCounts(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero consumers", []string{"-p", "-n", "3", "-c", "0"}},
		{"zero producers", []string{"-p", "-n", "0", "-c", "2"}},
		{"missing counts", []string{"-p"}},
		{"missing consumers", []string{"-p", "-n", "3"}},
		{"negative producers", []string{"-p", "-n", "-1", "-c", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCLI(t, time.Second, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Producer/Consumer")
		})
	}
}

func TestCLI_UnknownFlagInvalidatesInvocation(t *testing.T) {
	err := runCLI(t, time.Second, "-d", "-x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}

func TestCLI_DinersRunsAndStopsCleanly(t *testing.T) {
	err := runCLI(t, 150*time.Millisecond, "-d", "--config", fastProfile(t))
	assert.NoError(t, err)
}

func TestCLI_BrewersRunsAndStopsCleanly(t *testing.T) {
	err := runCLI(t, 150*time.Millisecond, "-b", "--config", fastProfile(t))
	assert.NoError(t, err)
}

func TestCLI_ProdConRunsAndStopsCleanly(t *testing.T) {
	err := runCLI(t, 150*time.Millisecond, "-p", "-n", "2", "-c", "2", "--config", fastProfile(t))
	assert.NoError(t, err)
}

// TestCLI_LastScenarioFlagWins: with -d last, the dining scenario runs even
// though the producer/consumer counts are missing — proof that -p lost.
func TestCLI_LastScenarioFlagWins(t *testing.T) {
	err := runCLI(t, 150*time.Millisecond, "-p", "-n", "2", "-c", "2", "-d", "--config", fastProfile(t))
	assert.NoError(t, err)

	// Reversed order: -p wins and fails validation with no counts given.
	err = runCLI(t, time.Second, "-d", "-p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Producer/Consumer")
}

func TestCLI_ProdConLosesToDinersWithoutCounts(t *testing.T) {
	// -p without counts would be invalid, but -d overrides it.
	err := runCLI(t, 150*time.Millisecond, "-p", "-d", "--config", fastProfile(t))
	assert.NoError(t, err)
}

func TestCLI_InvalidConfigRejectedBeforeRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parlour.yml")
	require.NoError(t, os.WriteFile(path, []byte("timing:\n  max_worker_sleep_ms: -5\n"), 0644))

	err := runCLI(t, time.Second, "-d", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid timing profile")
}
