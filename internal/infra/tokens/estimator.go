package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// Estimator counts prompt tokens with a BPE encoding when one is available and
// falls back to roughly four characters per token otherwise.
type Estimator struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewEstimator loads encoding when enabled. Loading may fetch the BPE ranks
// over the network; on failure the heuristic is used.
func NewEstimator(enabled bool, encoding string, logger *zerolog.Logger) *Estimator {
	e := &Estimator{}
	if !enabled {
		return e
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Warn().Err(err).Str("encoding", encoding).Msg("token encoding unavailable; using heuristic")
		return e
	}
	e.enc = enc
	return e
}

func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if e.enc == nil {
		return Heuristic(text)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.enc.Encode(text, nil, nil))
}

// Heuristic approximates token count from byte length.
func Heuristic(text string) int {
	return (len(text) + 3) / 4
}
