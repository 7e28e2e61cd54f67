package mqtt_test

import (
	"fmt"
	"time"

	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/mqtt"
)

// ExampleNewFactory shows how a component drives a broker connection
// through the capability interface. Creating the handle never blocks:
// the outcome of the connection attempt arrives through the listener.
func ExampleNewFactory() {
	factory, err := mqtt.NewFactory(mqtt.DriverPahoV5, mqtt.WithLogger(log.Std()))
	if err != nil {
		log.Error(err, "Failed to create MQTT factory")
		return
	}

	connected := make(chan struct{}, 1)
	listener := func(ev mqtt.Event) {
		switch ev.Type {
		case mqtt.EventConnected:
			select {
			case connected <- struct{}{}:
			default:
			}
		case mqtt.EventMessage:
			fmt.Printf("Received message on topic %s: %s\n", ev.Topic, ev.Payload)
		case mqtt.EventError:
			log.Error(ev.Err, "Transport reported an error")
		}
	}

	opts := mqtt.ConnectOptions{
		ClientID:        "example-component-001",
		CleanSession:    true,
		ReconnectPeriod: 5 * time.Second,
		ConnectTimeout:  10 * time.Second,
	}

	handle, err := factory.NewHandle("tcp://localhost:1883", opts, listener)
	if err != nil {
		log.Error(err, "Failed to create MQTT handle")
		return
	}
	defer handle.Close(true)

	select {
	case <-connected:
	case <-time.After(opts.ConnectTimeout):
		log.Warn("Connection timed out")
		return
	}

	handle.Subscribe("sensors/+/temperature", func(err error) {
		if err != nil {
			log.Error(err, "Failed to subscribe")
		}
	})
	handle.Publish("sensors/room1/temperature", []byte("21.5"), func(err error) {
		if err != nil {
			log.Error(err, "Failed to publish")
		}
	})
}
