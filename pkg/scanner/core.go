package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/praetorian-inc/yaraexec/pkg/matcher"
	"github.com/praetorian-inc/yaraexec/pkg/rule"
	"github.com/praetorian-inc/yaraexec/pkg/store"
	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// ErrNoRules is returned when a scan asks for the default rules and there
// are none. An explicit empty rule set is passed through to the matcher.
var ErrNoRules = errors.New("no rules to scan with")

// Core wraps the matcher, a default rule set and a store for scanning
// operations. It is safe for concurrent use.
type Core struct {
	matcher     matcher.Matcher
	rules       []string
	store       store.Store
	ownsStore   bool
	scanID      string
	incremental bool
	logger      *zap.Logger
}

// Option configures a Core.
type Option func(*Core)

// WithStore records results in s instead of a private in-memory store.
// The caller keeps ownership of s.
func WithStore(s store.Store) Option {
	return func(c *Core) {
		c.store = s
		c.ownsStore = false
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIncremental skips running the scanner for items already in the store.
func WithIncremental(on bool) Option {
	return func(c *Core) { c.incremental = on }
}

// WithScanID overrides the generated scan identifier.
func WithScanID(id string) Option {
	return func(c *Core) { c.scanID = id }
}

// NewCore creates a Core that scans with m and, unless a request supplies
// its own, the given default rules. A scan record is written to the store.
func NewCore(m matcher.Matcher, rules []*types.RuleSource, opts ...Option) (*Core, error) {
	c := &Core{
		matcher: m,
		rules:   rule.Sources(rules),
		scanID:  uuid.NewString(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil {
		s, err := store.New(store.Config{Path: store.MemoryPath})
		if err != nil {
			return nil, fmt.Errorf("creating store: %w", err)
		}
		c.store = s
		c.ownsStore = true
	}

	scan := store.Scan{ID: c.scanID, StartedAt: time.Now(), Command: commandOf(m)}
	if err := c.store.AddScan(scan); err != nil {
		c.Close()
		return nil, fmt.Errorf("recording scan: %w", err)
	}

	c.logger.Debug("scanner core ready",
		zap.String("scan_id", c.scanID),
		zap.Int("rules", len(c.rules)),
		zap.Bool("incremental", c.incremental))
	return c, nil
}

// commandOf returns the executable and flags when m exposes its Config.
func commandOf(m matcher.Matcher) []string {
	cm, ok := m.(interface{ Config() matcher.Config })
	if !ok {
		return nil
	}
	cfg := cm.Config()
	return append([]string{cfg.Command()}, cfg.Flags()...)
}

// ScanID returns the identifier of this Core's scan record.
func (c *Core) ScanID() string { return c.scanID }

// Store returns the store results are recorded in.
func (c *Core) Store() store.Store { return c.store }

// RuleCount returns the number of default rules.
func (c *Core) RuleCount() int { return len(c.rules) }

// ScanItem scans one enumerated item with the default rules.
func (c *Core) ScanItem(ctx context.Context, content []byte, prov types.Provenance) (*ScanResult, error) {
	return c.scan(ctx, content, prov, nil)
}

// Scan scans content labelled source. A nil rules slice selects the
// default rules; a non-nil empty slice scans with no rules.
func (c *Core) Scan(ctx context.Context, content []byte, source string, rules []string) (*ScanResult, error) {
	return c.scan(ctx, content, types.InlineProvenance{Source: source}, rules)
}

// ScanBatch scans items in order. A failing item is reported in its
// result and does not stop the batch.
func (c *Core) ScanBatch(ctx context.Context, items []ContentItem, rules []string) (*BatchScanResult, error) {
	batch := &BatchScanResult{Results: []ScanResult{}}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := item.Bytes()
		if err == nil {
			var result *ScanResult
			result, err = c.Scan(ctx, content, item.Source, rules)
			if err == nil {
				result.Metadata = item.Metadata
				batch.Results = append(batch.Results, *result)
				batch.Total += len(result.Matches)
				continue
			}
		}

		batch.Failed++
		batch.Results = append(batch.Results, ScanResult{
			Source:   item.Source,
			Matches:  []*types.Match{},
			Metadata: item.Metadata,
			Error:    err.Error(),
		})
	}

	return batch, nil
}

func (c *Core) scan(ctx context.Context, content []byte, prov types.Provenance, rules []string) (*ScanResult, error) {
	if rules == nil {
		if len(c.rules) == 0 {
			return nil, ErrNoRules
		}
		rules = c.rules
	}

	id := types.ComputeItemID(content)
	result := &ScanResult{Source: prov.Path(), ItemID: id}

	if c.incremental {
		exists, err := c.store.ItemExists(id)
		if err != nil {
			return nil, err
		}
		if exists {
			if err := c.store.AddProvenance(id, prov); err != nil {
				return nil, err
			}
			result.Matches, err = c.store.GetMatches(id)
			if err != nil {
				return nil, err
			}
			result.Skipped = true
			c.logger.Debug("item already scanned", zap.String("path", prov.Path()), zap.String("item_id", id.Hex()))
			return result, nil
		}
	}

	matches, err := c.matcher.Match(ctx, rules, content)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", prov.Path(), err)
	}
	result.Matches = matches

	if err := c.store.AddItem(id, int64(len(content))); err != nil {
		return nil, err
	}
	if err := c.store.AddProvenance(id, prov); err != nil {
		return nil, err
	}
	if err := c.store.AddMatches(c.scanID, id, matches); err != nil {
		return nil, err
	}

	c.logger.Debug("scanned item",
		zap.String("path", prov.Path()),
		zap.String("item_id", id.Hex()),
		zap.Int("matches", len(matches)))
	return result, nil
}

// Results returns every matched item recorded in the store.
func (c *Core) Results() ([]*types.ItemResult, error) {
	return c.store.GetResults()
}

// Close releases the store when the Core created it.
func (c *Core) Close() error {
	if c.ownsStore && c.store != nil {
		return c.store.Close()
	}
	return nil
}
