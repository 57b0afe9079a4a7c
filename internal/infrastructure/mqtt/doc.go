// Package mqtt publishes line protocol batches to an MQTT broker.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Publishing rendered batches with QoS guarantees
//   - Topic subscriptions with wildcard support (used for JSON point ingest)
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
// All topics live under <topic_prefix>/<site>:
//
//	<prefix>/<site>/lines/<precision>   rendered line protocol, one batch per message
//	<prefix>/<site>/write               JSON points accepted for ingest
//	<prefix>/<site>/status              retained online/offline status
//
// Batches larger than 1MB are split on line boundaries.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Site.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Write(ctx, batch)
package mqtt
