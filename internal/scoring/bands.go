package scoring

import (
	"errors"
	"fmt"
)

// Channel and band order as the EPOC X emits them. The 'pow' stream is a
// flat array: for each channel, one value per band, in this order.
var (
	Channels = []string{"AF3", "F7", "F3", "FC5", "T7", "P7", "O1", "O2", "P8", "T8", "FC6", "F4", "F8", "AF4"}
	Bands    = []string{"theta", "alpha", "betaL", "betaH", "gamma"}
)

// SampleLen is the expected length of a 'pow' sample: 14 channels x 5 bands.
var SampleLen = len(Channels) * len(Bands)

const (
	alphaIdx = 1
	betaLIdx = 2
	betaHIdx = 3
)

// ErrMalformedSample marks a 'pow' sample whose length does not match the
// channel x band layout. The sample is dropped; never fatal to a window.
var ErrMalformedSample = errors.New("malformed sample")

// BandSums extracts the total alpha power and total beta power (betaL +
// betaH) summed across all channels of a single sample.
func BandSums(pow []float64) (alpha, beta float64, err error) {
	if len(pow) != SampleLen {
		return 0, 0, fmt.Errorf("%w: expected %d power values, got %d", ErrMalformedSample, SampleLen, len(pow))
	}

	for ch := 0; ch < len(Channels); ch++ {
		base := ch * len(Bands)
		alpha += pow[base+alphaIdx]
		beta += pow[base+betaLIdx] + pow[base+betaHIdx]
	}
	return alpha, beta, nil
}
