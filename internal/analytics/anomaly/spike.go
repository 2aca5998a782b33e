package anomaly

import (
	"fmt"
	"math"
)

// spikeHeuristic walks consecutive pairs looking for sharp increases
type spikeHeuristic struct{}

func (spikeHeuristic) kind() Kind {
	return KindSpike
}

func (spikeHeuristic) evaluate(in input, th Thresholds) *Finding {
	var spikes []SpikePoint

	for i := 1; i < len(in.samples); i++ {
		previous := in.samples[i-1].Value
		current := in.samples[i].Value

		if previous > 0 && current > previous*th.SpikeRatio {
			spikes = append(spikes, SpikePoint{
				Timestamp:     in.samples[i].Timestamp,
				Value:         current,
				PreviousValue: previous,
				Ratio:         math.Min(current/previous, math.MaxFloat64),
			})
		}
	}

	if len(spikes) == 0 {
		return nil
	}

	listed := spikes
	if len(listed) > th.MaxSpikeDetails {
		listed = listed[:th.MaxSpikeDetails]
	}

	// Spikes are high severity regardless of how many there are
	return &Finding{
		Kind:     KindSpike,
		Message:  fmt.Sprintf("Detected %d sudden spikes (more than %.1fx the previous value)", len(spikes), th.SpikeRatio),
		Severity: SeverityHigh,
		Count:    intPtr(len(spikes)),
		Detail: SpikeDetail{
			RatioThreshold: th.SpikeRatio,
			Spikes:         listed,
		},
	}
}
