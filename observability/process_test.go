package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessSampler_Sample(t *testing.T) {
	req := require.New(t)
	sampler, err := NewProcessSampler()
	req.NoError(err)

	stats, err := sampler.Sample()

	req.NoError(err)
	req.Positive(stats.RSSBytes)
	req.Positive(stats.Goroutines)
	req.GreaterOrEqual(stats.CPUPercent, 0.0)
}
