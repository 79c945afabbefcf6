package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrPollTimeout is returned when a submission does not reach a terminal
// state within the attempt ceiling.
var ErrPollTimeout = errors.New("timed out waiting for submission status")

// PollPolicy bounds the submission-status polling loop. The wait before
// attempt n is Base + n*Step.
type PollPolicy struct {
	Base        time.Duration
	Step        time.Duration
	MaxAttempts int
}

func (p PollPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 10
	}
	return p.MaxAttempts
}

// linearBackOff implements backoff.BackOff with a linearly growing delay.
type linearBackOff struct {
	base    time.Duration
	step    time.Duration
	attempt int
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base + time.Duration(b.attempt)*b.step
}

// CheckResponse is the submission-status payload.
type CheckResponse struct {
	State      string `json:"state"`
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
	QuestionID int    `json:"question_id"`
}

var errStillJudging = errors.New("submission still judging")

// WaitSubmission polls the submission-status endpoint until the judgement
// finishes. Fetch and decode errors end the poll immediately; a submission
// that never leaves the judging state exhausts the attempt ceiling and
// yields ErrPollTimeout.
func (c *Client) WaitSubmission(ctx context.Context, submissionID string) (*CheckResponse, error) {
	url := fmt.Sprintf("%s/submissions/detail/%s/check/", c.opts.BaseURL, submissionID)
	policy := c.opts.Poll

	var result *CheckResponse
	op := func() error {
		var cr CheckResponse
		if err := c.getJSON(ctx, url, &cr); err != nil {
			return backoff.Permanent(err)
		}
		if cr.State != "SUCCESS" {
			return errStillJudging
		}
		result = &cr
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(
			&linearBackOff{base: policy.Base, step: policy.Step},
			uint64(policy.attempts()-1),
		),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, errStillJudging) {
			return nil, fmt.Errorf("%w: submission %s after %d attempts", ErrPollTimeout, submissionID, policy.attempts())
		}
		return nil, err
	}
	return result, nil
}
