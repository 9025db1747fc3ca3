// Package reconcile merges device observations from independent sources into
// one health record per physical device.
package reconcile

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

// minSerialHintLen guards instance-name containment matching against short
// serial fragments that would match almost anything.
const minSerialHintLen = 4

// Match describes how an observation was resolved.
type Match string

const (
	MatchKey        Match = "key"
	MatchDiskNumber Match = "disk_number"
	MatchInstance   Match = "instance_hint"
	MatchCreated    Match = "created"
)

// Context holds the identity index for one reconciliation pass. It is not
// safe for concurrent use and is never reused across passes.
type Context struct {
	keys    map[string]*health.Record
	disks   map[int]string
	records []*health.Record
	log     *zap.Logger
}

// NewContext returns an empty context.
func NewContext(log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		keys:  make(map[string]*health.Record),
		disks: make(map[int]string),
		log:   log,
	}
}

// Records returns the records in creation order.
func (c *Context) Records() []*health.Record {
	out := make([]*health.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Lookup returns the record a candidate key is registered to.
func (c *Context) Lookup(key string) (*health.Record, bool) {
	r, ok := c.keys[key]
	return r, ok
}

// Resolve finds or creates the record obs belongs to and registers all of its
// keys against it. Keys must already be derived.
//
// Records that were created under disjoint key sets are never merged after
// the fact, even when a later observation links them.
func (c *Context) Resolve(obs *health.Observation) (*health.Record, Match) {
	if len(obs.Keys) == 0 {
		health.DeriveKeys(obs)
	}

	rec, how := c.find(obs)
	if rec == nil {
		rec = &health.Record{}
		c.records = append(c.records, rec)
		how = MatchCreated
	}

	for _, k := range obs.Keys {
		prev, ok := c.keys[k]
		if ok && prev == rec {
			continue
		}
		if ok {
			prev.Keys = slices.DeleteFunc(prev.Keys, func(pk string) bool { return pk == k })
			c.log.Debug("Candidate key moved between records",
				zap.String("key", k), zap.String("source", obs.Source))
		}
		rec.Keys = append(rec.Keys, k)
		c.keys[k] = rec
	}
	if obs.DiskNumber != nil {
		if _, ok := c.disks[*obs.DiskNumber]; !ok {
			c.disks[*obs.DiskNumber] = obs.Keys[0]
		}
	}

	return rec, how
}

func (c *Context) find(obs *health.Observation) (*health.Record, Match) {
	for _, k := range obs.Keys {
		if rec, ok := c.keys[k]; ok {
			return rec, MatchKey
		}
	}

	if obs.DiskNumber != nil {
		if k, ok := c.disks[*obs.DiskNumber]; ok {
			if rec, ok := c.keys[k]; ok {
				return rec, MatchDiskNumber
			}
		}
	}

	if obs.InstanceName != "" {
		inst := health.Normalize(obs.InstanceName)
		for _, rec := range c.records {
			serial := health.Normalize(rec.SerialNumber)
			if len(serial) >= minSerialHintLen && strings.Contains(inst, serial) {
				return rec, MatchInstance
			}
		}
	}

	return nil, ""
}

// Fold resolves obs and merges it into the resulting record.
func (c *Context) Fold(obs health.Observation) *health.Record {
	rec, how := c.Resolve(&obs)
	if rec.DiskNumber != nil && obs.DiskNumber != nil && *rec.DiskNumber != *obs.DiskNumber {
		c.log.Warn("Observation of another disk merged through a shared key",
			zap.Int("disk", *rec.DiskNumber),
			zap.Int("observed_disk", *obs.DiskNumber),
			zap.String("source", obs.Source),
			zap.String("match", string(how)))
	}
	Merge(rec, &obs)
	c.log.Debug("Observation folded",
		zap.String("source", obs.Source),
		zap.Strings("keys", obs.Keys),
		zap.String("match", string(how)))
	return rec
}
