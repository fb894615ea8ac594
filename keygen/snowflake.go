/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package keygen

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = 1<<workerIDBits - 1
	sequenceMask   = 1<<sequenceBits - 1
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits

	// max tolerated clock rollback before failing.
	maxTolerateTimeDiff = 10 * time.Millisecond
)

var (
	// 2016-11-01 00:00:00 UTC in milliseconds.
	snowflakeEpoch = time.Date(2016, time.November, 1, 0, 0, 0, 0, time.UTC).UnixNano() / int64(time.Millisecond)
)

// Snowflake generates 64 bit keys: 41 bits of milliseconds since the epoch,
// 10 bits of worker id, 12 bits of sequence.
type Snowflake struct {
	mu       sync.Mutex
	workerID int64
	lastMs   int64
	sequence int64
	now      func() int64
}

// NewSnowflake creates the snowflake generator, props: worker-id.
func NewSnowflake(props map[string]string) (Generator, error) {
	var workerID int64
	if v, ok := props["worker-id"]; ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Errorf("keygen.snowflake.worker-id[%s].invalid", v)
		}
		workerID = id
	}
	if workerID < 0 || workerID > maxWorkerID {
		return nil, errors.Errorf("keygen.snowflake.worker-id[%d].out.of.range[0-%d]", workerID, maxWorkerID)
	}
	return &Snowflake{
		workerID: workerID,
		now: func() int64 {
			return time.Now().UnixNano() / int64(time.Millisecond)
		},
	}, nil
}

// Type returns the generator type.
func (g *Snowflake) Type() string {
	return typeSnowflake
}

// Generate returns a new key.
func (g *Snowflake) Generate() (interface{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now()
	if ms < g.lastMs {
		diff := time.Duration(g.lastMs-ms) * time.Millisecond
		if diff > maxTolerateTimeDiff {
			return nil, errors.Errorf("keygen.snowflake.clock.moved.backwards[%v]", diff)
		}
		ms = g.lastMs
	}
	if ms == g.lastMs {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			for ms <= g.lastMs {
				ms = g.now()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastMs = ms
	return (ms-snowflakeEpoch)<<timestampShift | g.workerID<<workerIDShift | g.sequence, nil
}
