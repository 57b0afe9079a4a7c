// Package tsdb delivers line protocol batches to VictoriaMetrics over HTTP.
//
// The client posts to the InfluxDB v1 compatible /write endpoint, passing
// the batch's timestamp unit as the precision query parameter. Bodies can
// be gzipped, and configured extra labels are attached to every series via
// the extra_label query parameter.
//
// # Usage
//
//	cfg := config.TSDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8428",
//	}
//
//	client, err := tsdb.Connect(ctx, cfg)
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
//
// # Error Handling
//
// Send and Write return errors wrapping ErrWriteFailed. Retrying is the
// caller's job; the pipeline spools failed payloads.
package tsdb
