package influxdb

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/awaistahir/grid-analytics/internal/config"
	"github.com/cenkalti/backoff/v4"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/domain"
)

const (
	deviceTag   = "device_serial"
	connectWait = 30 * time.Second
)

// Querier runs a Flux query and returns one map per record
type Querier interface {
	QueryFlux(ctx context.Context, flux string) ([]map[string]any, error)
}

// Client represents an InfluxDB v2 client
type Client struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPIBlocking
	config   config.InfluxDBConfig
}

// NewClient initializes the InfluxDB v2 client and waits for the server to
// report healthy, retrying with exponential backoff.
func NewClient(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectWait

	err := backoff.RetryNotify(func() error {
		health, err := client.Health(ctx)
		if err != nil {
			return err
		}
		if health.Status != domain.HealthCheckStatusPass {
			return fmt.Errorf("status %s", health.Status)
		}
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		log.Printf("InfluxDB at %s not ready (%v), retrying in %s", cfg.URL, err, wait)
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	return &Client{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Org),
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		config:   cfg,
	}, nil
}

// QueryFlux runs a Flux query and flattens every table into records
func (c *Client) QueryFlux(ctx context.Context, flux string) ([]map[string]any, error) {
	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	var records []map[string]any
	for result.Next() {
		records = append(records, result.Record().Values())
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the InfluxDB client
func (c *Client) Close() {
	c.client.Close()
}
