// Package influxdb records Builder Core's time-series activity:
// template writes (REST and realtime), presence transitions, and API
// request latency.
//
// It wraps influxdb-client-go v2's non-blocking write API. Points are
// batched per the configured batch_size and flush_interval and the
// write calls never block a request path; batch failures surface
// through the SetOnError callback rather than a return value.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteTemplateUpdate("tpl-a1b2c3d4", "usr-9f8e7d6c", "rest", 1824)
//
// When the config disables InfluxDB, Connect returns ErrDisabled and
// callers run without metrics. All methods are safe for concurrent use.
package influxdb
