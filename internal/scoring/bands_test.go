package scoring

import (
	"errors"
	"testing"
)

// makeSample builds a full 70-value 'pow' sample with the given per-channel
// band powers repeated on every channel.
func makeSample(theta, alpha, betaL, betaH, gamma float64) []float64 {
	pow := make([]float64, 0, SampleLen)
	for range Channels {
		pow = append(pow, theta, alpha, betaL, betaH, gamma)
	}
	return pow
}

func TestBandSums(t *testing.T) {
	alpha, beta, err := BandSums(makeSample(1, 10, 3, 2, 0.5))
	if err != nil {
		t.Fatalf("BandSums: %v", err)
	}
	if want := 10.0 * float64(len(Channels)); alpha != want {
		t.Errorf("alpha = %v, want %v", alpha, want)
	}
	if want := 5.0 * float64(len(Channels)); beta != want {
		t.Errorf("beta = %v, want %v", beta, want)
	}
}

func TestBandSumsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, SampleLen - 1, SampleLen + 1} {
		_, _, err := BandSums(make([]float64, n))
		if !errors.Is(err, ErrMalformedSample) {
			t.Errorf("BandSums(len %d) error = %v, want ErrMalformedSample", n, err)
		}
	}
}

func TestBandSumsZeroBeta(t *testing.T) {
	_, beta, err := BandSums(makeSample(1, 10, 0, 0, 0.5))
	if err != nil {
		t.Fatalf("BandSums: %v", err)
	}
	if beta != 0 {
		t.Errorf("beta = %v, want 0", beta)
	}
}

func TestBandSumsMatchScore(t *testing.T) {
	// The canonical window: alpha=10, betaL=3, betaH=2 on every channel
	// reduces to ratio 2 and score 31.
	alpha, beta, err := BandSums(makeSample(2, 10, 3, 2, 1))
	if err != nil {
		t.Fatalf("BandSums: %v", err)
	}
	if got := Score(alpha/beta, DefaultBaseline); got != 31 {
		t.Errorf("Score(alpha/beta) = %d, want 31", got)
	}
}
