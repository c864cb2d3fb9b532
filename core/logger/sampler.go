package logger

import (
	"sync/atomic"

	coreconfig "github.com/m3rciful/sprintbot/core/config"
)

// sampler lets through n of every d calls. A zero ratio lets everything
// through.
type sampler struct {
	ratio atomic.Uint64 // n<<32 | d
	calls atomic.Uint64
}

func (s *sampler) Set(n, d int) {
	if n <= 0 || d <= 0 {
		s.ratio.Store(0)
		return
	}
	n = min(n, d)
	s.ratio.Store(uint64(n)<<32 | uint64(d))
	s.calls.Store(0)
}

func (s *sampler) Allow() bool {
	r := s.ratio.Load()
	n, d := r>>32, r&0xffffffff
	if d == 0 {
		return true
	}
	return (s.calls.Add(1)-1)%d < n
}

// parseRatio wraps config.SampleRatio; ok is false for malformed input.
func parseRatio(ratio string) (n, d int, ok bool) {
	n, d, err := coreconfig.SampleRatio(ratio)
	return n, d, err == nil
}
