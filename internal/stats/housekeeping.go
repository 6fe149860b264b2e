// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"context"
	"strconv"
	"time"

	"github.com/tomtom215/cartographus/internal/metrics"
)

// ConnectionStats supplies the live connection-subsystem counters
// global_calc refreshes each pass. Implemented by whatever owns the
// listener/relay connection tables; this package only consumes it.
type ConnectionStats interface {
	Clients() int64
	Listeners() int64
}

// BitrateSampler supplies the current outgoing bitrate sample,
// implemented by internal/bitrate's EWMA tracker.
type BitrateSampler interface {
	SampleKbitrate() int64
}

// FileFallbackChecker mirrors fserve_contains(mount): it reports whether
// a non-live mount still has a file-fallback backing it, consulted by
// purge before dropping a source whose mount does not begin with "/".
type FileFallbackChecker interface {
	HasFallback(mount string) bool
}

// GlobalCalcService runs global_calc once per EngineConfig.GlobalCalcPeriod
// as a suture.Service: it refreshes the derived globals (clients,
// listeners, outgoing_kbitrate) and re-broadcasts any REGULAR global
// node whose value has gone stale for longer than the throttle window.
type GlobalCalcService struct {
	Engine  *Engine
	Conn    ConnectionStats
	Bitrate BitrateSampler
	Period  time.Duration
}

func (s *GlobalCalcService) String() string { return "stats-global-calc" }

func (s *GlobalCalcService) Serve(ctx context.Context) error {
	period := s.Period
	if period == 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Engine.globalCalc(time.Now(), s.Conn, s.Bitrate)
		}
	}
}

func (e *Engine) globalCalc(now time.Time, conn ConnectionStats, bitrate BitrateSampler) {
	// These three mirror stats_initialize's seeding (stats.c:166-184):
	// clients/listeners/outgoing_kbitrate are all COUNTERS|REGULAR, so
	// modify_node_event's flag-preservation keeps them REGULAR on every
	// subsequent write here and they re-broadcast only through the
	// throttled loop below, not on every tick. outgoing_kbitrate is
	// additionally HIDDEN per stats.c:1380.
	if conn != nil {
		e.EventFlags("", "clients", strconv.FormatInt(conn.Clients(), 10), General|Counters|Regular)
		e.EventFlags("", "listeners", strconv.FormatInt(conn.Listeners(), 10), General|Counters|Regular)
	}
	if bitrate != nil {
		e.EventFlags("", "outgoing_kbitrate", strconv.FormatInt(bitrate.SampleKbitrate(), 10), General|Counters|Regular|Hidden)
	}

	var stale []*Node
	e.store.globalMu.RLock()
	e.store.global.each(func(_ string, n *Node) {
		if n.Flags.Has(Regular) && now.Sub(n.LastReported) > e.cfg.RegularThrottle {
			stale = append(stale, n)
		}
	})
	e.store.globalMu.RUnlock()

	for _, n := range stale {
		e.store.globalMu.Lock()
		cur, ok := e.store.global.get(n.Name)
		if ok && cur.Flags.Has(Regular) {
			cur.LastReported = now
		}
		e.store.globalMu.Unlock()
		if ok {
			e.fanout([]broadcastMsg{{line: eventLine(globalScope, n.Name, cur.Value), flags: cur.Flags}}, now)
		}
	}
}

// PurgeService runs purge once per EngineConfig.PurgeInterval as a
// suture.Service: sources whose mount begins with "/" are dropped once
// their Updated deadline is older than PurgeRetention; any other source
// is dropped once FileFallback reports it has no file fallback.
type PurgeService struct {
	Engine       *Engine
	FileFallback FileFallbackChecker
	Interval     time.Duration
	Retention    time.Duration
}

func (s *PurgeService) String() string { return "stats-purge" }

func (s *PurgeService) Serve(ctx context.Context) error {
	interval := s.Interval
	if interval == 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Engine.purge(time.Now().Add(-s.Retention), s.FileFallback)
		}
	}
}

func (e *Engine) purge(mark time.Time, fallback FileFallbackChecker) {
	type candidate struct {
		mount   string
		isLive  bool
		updated time.Time
	}
	var candidates []candidate
	e.store.eachSource(func(src *Source) {
		src.mu.RLock()
		defer src.mu.RUnlock()
		candidates = append(candidates, candidate{
			mount:   src.Mount,
			isLive:  len(src.Mount) > 0 && src.Mount[0] == '/',
			updated: src.Updated,
		})
	})

	removed := 0
	for _, c := range candidates {
		if c.isLive {
			if c.updated.Before(mark) {
				e.store.removeSource(c.mount)
				removed++
			}
			continue
		}
		if fallback == nil || !fallback.HasFallback(c.mount) {
			e.store.removeSource(c.mount)
			removed++
		}
	}
	if removed > 0 {
		metrics.RecordPurgeRemoved(removed)
	}
}
