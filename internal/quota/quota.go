// Package quota evaluates subscription limits for quiz creation and
// generation. It holds no counters of its own: callers supply current usage
// read from persisted state.
package quota

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phrazzld/quizgen/internal/domain"
)

// ErrQuotaExceeded is wrapped by every quota denial.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Decision is the outcome of a single quota check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for allowed decisions and an *ExceededError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &ExceededError{Reason: d.Reason}
}

// ExceededError carries the human-readable reason of a quota denial.
type ExceededError struct {
	Reason string
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQuotaExceeded.Error(), e.Reason)
}

// Unwrap allows errors.Is(err, ErrQuotaExceeded).
func (e *ExceededError) Unwrap() error {
	return ErrQuotaExceeded
}

// PolicyFunc resolves the limits of a tier.
type PolicyFunc func(tier domain.Tier) domain.SubscriptionPolicy

// Gate applies the subscription limits. The four checks are independent and
// may run in any order.
type Gate struct {
	policy PolicyFunc
}

// NewGate creates a Gate. A nil policy uses domain.PolicyForTier.
func NewGate(policy PolicyFunc) *Gate {
	if policy == nil {
		policy = domain.PolicyForTier
	}
	return &Gate{policy: policy}
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// CanCreateQuiz denies once the user owns the maximum number of quizzes.
func (g *Gate) CanCreateQuiz(tier domain.Tier, currentTotalQuizzes int) Decision {
	limit := g.policy(tier).MaxTotalQuizzes
	if limit != nil && currentTotalQuizzes >= *limit {
		return deny("the %s plan allows at most %d quizzes", tier, *limit)
	}
	return allow()
}

// CanGenerateToday denies once the daily generation allowance is used up.
func (g *Gate) CanGenerateToday(tier domain.Tier, generationsToday int) Decision {
	limit := g.policy(tier).MaxGenerationsPerDay
	if limit != nil && generationsToday >= *limit {
		return deny("the %s plan allows at most %d generations per day", tier, *limit)
	}
	return allow()
}

// CanUseFilesForGeneration denies requests with more files than the tier allows.
func (g *Gate) CanUseFilesForGeneration(tier domain.Tier, fileCount int) Decision {
	limit := g.policy(tier).MaxFilesPerGeneration
	if limit != nil && fileCount > *limit {
		return deny("the %s plan allows at most %d files per generation", tier, *limit)
	}
	return allow()
}

// CanUseTokensForGeneration denies inputs whose estimated size exceeds the tier limit.
func (g *Gate) CanUseTokensForGeneration(tier domain.Tier, estimatedTokenCount int) Decision {
	limit := g.policy(tier).MaxInputTokens
	if limit != nil && estimatedTokenCount > *limit {
		return deny("the %s plan allows at most %d input tokens, got %d", tier, *limit, estimatedTokenCount)
	}
	return allow()
}

// EstimateTokens approximates the token count of the generation input as the
// length of its serialized form.
func EstimateTokens(contents []json.RawMessage) int {
	data, err := json.Marshal(contents)
	if err != nil {
		// Raw messages that fail to marshal are invalid JSON; count raw bytes.
		n := 0
		for _, c := range contents {
			n += len(c)
		}
		return n
	}
	return len(data)
}
