package model

import (
	"fmt"
	"time"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
)

// DataCaptureThread is the acquisition source of a pipeline
type DataCaptureThread struct {
	id             string
	Type           string
	Config         map[string]any
	initiator      string
	LastUpdateTime time.Time
	Rate           message.Rate
	Status         message.Status
}

// NewDataCaptureThread creates a DCT owned by initiator
func NewDataCaptureThread(id, typ, initiator string, config map[string]any) *DataCaptureThread {
	if config == nil {
		config = make(map[string]any)
	}
	return &DataCaptureThread{
		id:        id,
		Type:      typ,
		Config:    config,
		initiator: initiator,
	}
}

// DCTFromStats reconstructs a DCT from a heartbeat entry. config is the local form.
func DCTFromStats(stats message.DCTStats, config map[string]any) *DataCaptureThread {
	d := NewDataCaptureThread(stats.ID, stats.Type, stats.Initiator, config)
	d.LastUpdateTime = stats.LastUpdateTime
	d.Rate = stats.Rate
	d.Status = stats.Status
	return d
}

// ID returns the immutable DCT id
func (d *DataCaptureThread) ID() string { return d.id }

// Initiator returns the owning client identity
func (d *DataCaptureThread) Initiator() string { return d.initiator }

// Update refreshes the DCT in place from a heartbeat entry.
// Stats for another id are rejected with ErrDCTIdentityMismatch.
func (d *DataCaptureThread) Update(stats message.DCTStats, config map[string]any) error {
	if stats.ID != d.id {
		return errors.WrapInvalid(
			fmt.Errorf("%w: have %q, got %q", errors.ErrDCTIdentityMismatch, d.id, stats.ID),
			"DataCaptureThread", "Update", "compare ids")
	}
	if stats.Type != "" {
		d.Type = stats.Type
	}
	if config != nil {
		d.Config = config
	}
	d.LastUpdateTime = stats.LastUpdateTime
	d.Rate = stats.Rate
	d.Status = stats.Status
	return nil
}
