package notifier

import "time"

// RetryPolicy bounds retries around a send operation. Sleep is injectable so
// tests can run with a fake clock.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Sleep       func(time.Duration)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Backoff:     2 * time.Second,
		Sleep:       time.Sleep,
	}
}

// Do runs op up to MaxAttempts times, sleeping Backoff between attempts, but
// only while retryable(err) is true. Non-retryable errors return immediately.
func (p RetryPolicy) Do(op func() error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) {
			return err
		}
		if i < attempts-1 && p.Backoff > 0 {
			sleep(p.Backoff)
		}
	}
	return err
}
