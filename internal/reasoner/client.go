package reasoner

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"codegraph/internal/resilience"
	"codegraph/internal/types"
)

// Result is the outcome of a Query call.
type Result struct {
	Derived         []types.Statement
	CyclesUsed      int
	Degraded        bool // true when served by the offline substitute
	DegradationNote string
}

// Config configures a Client.
type Config struct {
	Host string
	Port int

	// InferenceCycles bounds how many forward-chaining rounds the external
	// reasoner (or the offline substitute) may run per query.
	InferenceCycles int

	// InferenceTimeout bounds how long a single UDP round-trip may take
	// before the call is treated as a failure.
	InferenceTimeout time.Duration

	CircuitBreakerThreshold int
	CircuitResetTimeout     time.Duration
}

// Client queries the external non-axiomatic reasoner over UDP, falling back
// to an in-process rule-based substitute whenever the circuit breaker is
// open or a call errors.
type Client struct {
	cfg    Config
	log    *zap.Logger
	cb     *resilience.CircuitBreaker
	dial   func() (net.Conn, error)
	mu     sync.Mutex
	tagSeq uint64
	fallback *ruleBasedReasoner
}

// New creates a Client dialing host:port for each query. Passing a nil
// logger installs a no-op logger.
func New(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.InferenceCycles <= 0 {
		cfg.InferenceCycles = 100
	}
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = 200 * time.Millisecond
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Client{
		cfg: cfg,
		log: log,
		cb: resilience.New(resilience.Config{
			Name:         "reasoner",
			MaxFailures:  cfg.CircuitBreakerThreshold,
			ResetTimeout: cfg.CircuitResetTimeout,
		}, log),
		dial: func() (net.Conn, error) {
			return net.DialTimeout("udp", addr, cfg.InferenceTimeout)
		},
		fallback: newRuleBasedReasoner(),
	}
}

// Stats exposes the underlying circuit breaker's snapshot.
func (c *Client) Stats() resilience.Stats {
	return c.cb.Stats()
}

func (c *Client) nextTag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tagSeq++
	return fmt.Sprintf("q%d-%d", time.Now().UnixNano(), c.tagSeq)
}

// Query submits statements for bounded forward-chaining inference, bounded
// by min(cycles, cfg.InferenceCycles). It never returns an error for a
// reasoner-unavailable condition; instead it degrades to the offline
// substitute and reports that in Result.Degraded.
func (c *Client) Query(ctx context.Context, statements []types.Statement, cycles int) (*Result, error) {
	if cycles <= 0 || cycles > c.cfg.InferenceCycles {
		cycles = c.cfg.InferenceCycles
	}

	var derived []types.Statement
	var cyclesUsed int
	err := c.cb.Execute(func() error {
		d, used, err := c.queryOnce(ctx, statements, cycles)
		if err != nil {
			return err
		}
		derived, cyclesUsed = d, used
		return nil
	})
	if err == nil {
		return &Result{Derived: derived, CyclesUsed: cyclesUsed}, nil
	}

	c.log.Warn("reasoner unavailable, degrading to offline substitute", zap.Error(err))
	d, used := c.fallback.infer(ctx, statements, cycles)
	return &Result{
		Derived:         d,
		CyclesUsed:      used,
		Degraded:        true,
		DegradationNote: err.Error(),
	}, nil
}

func (c *Client) queryOnce(ctx context.Context, statements []types.Statement, cycles int) ([]types.Statement, int, error) {
	if c.cfg.Host == "" {
		return nil, 0, fmt.Errorf("reasoner: no host configured")
	}

	conn, err := c.dial()
	if err != nil {
		return nil, 0, fmt.Errorf("reasoner: dial failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.cfg.InferenceTimeout))
	}

	tag := c.nextTag()
	for _, s := range statements {
		if _, err := conn.Write([]byte(encodeStatementFrame(tag, frameJudgement, s))); err != nil {
			return nil, 0, fmt.Errorf("reasoner: write failed: %w", err)
		}
	}
	if _, err := conn.Write([]byte(encodeCyclesFrame(tag, cycles))); err != nil {
		return nil, 0, fmt.Errorf("reasoner: write failed: %w", err)
	}

	buf := make([]byte, 65536)
	var derived []types.Statement
	cyclesUsed := 0
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if len(derived) > 0 {
				// A partial response followed by a read timeout is treated
				// as the session's natural end over this lossy transport.
				break
			}
			return nil, 0, fmt.Errorf("reasoner: read failed: %w", err)
		}
		f, stmt, derr := decodeStatementFrame(string(buf[:n]))
		if derr != nil {
			continue
		}
		if f.Tag != tag {
			continue
		}
		if f.Kind == frameDerived {
			derived = append(derived, *stmt)
			cyclesUsed++
		}
		if cyclesUsed >= cycles {
			break
		}
	}
	return derived, cyclesUsed, nil
}
