// Package mqtt publishes Builder Core's event stream to a Mosquitto
// broker. Template changes and user presence go out as retained or
// QoS-1 messages so downstream consumers (dashboards, cache
// invalidators, audit pipelines) subscribe instead of polling REST.
//
// The client wraps paho.mqtt.golang with auto-reconnect, resubscription
// after a dropped connection, and a Last Will that flips the service's
// status topic to offline if the process dies without a clean Close.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.TemplateUpdated("tpl-a1b2c3d4")
//	client.Publish(topic, []byte(`{"updated_by":"usr-9f8e7d6c"}`), 1, false)
//
// Topic construction lives in Topics so the shape of the namespace is
// defined in one place. Production brokers require TLS and ACL-backed
// credentials; anonymous access is for local development only.
package mqtt
