package service

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/avvvet/timeline-services/internal/comm"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/models"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/sizeguard"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/store"
)

// ErrInvalidRecord is returned when a record is missing a key attribute.
var ErrInvalidRecord = errors.New("invalid record")

// unfilteredPageSize is the page size of unfiltered media scans.
const unfilteredPageSize = 10

// Options are shared by the record services.
type Options struct {
	Guard    sizeguard.Guard
	Limits   store.Limits
	Notifier comm.Notifier
}

func (o Options) withDefaults() Options {
	if o.Guard.Ceiling <= 0 {
		o.Guard = sizeguard.New(o.Guard.Ceiling, o.Guard.Indexes)
	}
	if o.Notifier == nil {
		o.Notifier = comm.NopNotifier{}
	}
	return o
}

// decodeRecords converts store items to records without dropping or
// reshaping attributes. Numbers decode as float64.
func decodeRecords(items []store.Item) ([]models.Record, error) {
	records := make([]models.Record, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

func decodeRecord(item store.Item) (models.Record, error) {
	var record models.Record
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, err
	}
	return record, nil
}
