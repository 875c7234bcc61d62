package automation

import (
	"context"
	"fmt"
	"time"
)

// SegmentClient implements SegmentChecker over the RPC requester.
//
// Membership is evaluated remotely by the segments service; the reply
// carries a single "check" boolean. No caching: every call is a fresh
// check so decisions reflect current membership.
type SegmentClient struct {
	requester Requester
	timeout   time.Duration
}

// NewSegmentClient creates a segment oracle backed by the requester.
func NewSegmentClient(requester Requester, timeout time.Duration) *SegmentClient {
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	return &SegmentClient{
		requester: requester,
		timeout:   timeout,
	}
}

// IsInSegment reports whether the target is currently a member of the
// segment. A transport failure or timeout is returned as an error; the
// caller decides whether to record it on an execution.
func (s *SegmentClient) IsInSegment(ctx context.Context, segmentID, targetID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.requester.Request(ctx, "segments", "isInSegment", map[string]any{
		"segmentId": segmentID,
		"targetId":  targetID,
	})
	if err != nil {
		return false, fmt.Errorf("isInSegment %q: %w", segmentID, err)
	}

	check, _ := resp["check"].(bool)
	return check, nil
}
