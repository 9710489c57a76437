package dogstatsd

import (
	"testing"

	"github.com/Layr-Labs/staking-ledger/internal/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
)

func Test_FormatLabels(t *testing.T) {
	t.Run("Should format labels as datadog tags", func(t *testing.T) {
		tags := formatLabels([]metricsTypes.MetricsLabel{
			{Name: "operation", Value: "deposit"},
			{Name: "outcome", Value: "success"},
		})
		assert.Equal(t, []string{"operation:deposit", "outcome:success"}, tags)
	})
	t.Run("Should return an empty slice for no labels", func(t *testing.T) {
		assert.Equal(t, []string{}, formatLabels(nil))
	})
}
