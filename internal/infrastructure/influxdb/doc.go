// Package influxdb delivers line protocol batches to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Batches are rendered
// in the configured write precision and written with the blocking
// WriteRecord call, so a failed write surfaces immediately and the pipeline
// can spool it.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled:   true,
//	    URL:       "http://localhost:8086",
//	    Token:     "your-token",
//	    Org:       "graylogic",
//	    Bucket:    "metrics",
//	    Precision: "ms",
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Write(ctx, batch)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package influxdb
