// Package config loads the line writer's YAML configuration.
//
// Values are layered: Default, then the file, then LINEWRITER_*
// environment variables (LINEWRITER_TSDB_URL, LINEWRITER_INFLUXDB_TOKEN,
// LINEWRITER_MQTT_PASSWORD, ...). Validate reports every problem in one
// error. Precision names and the site ID are checked with the same rules
// the line protocol package applies to points.
//
// Keep the InfluxDB token and MQTT password out of the file and set them
// through the environment.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config
