package supervisor_test

import (
	"encoding/json"
	"fmt"

	"github.com/autopeer-io/brokerlink/internal/supervisor"
	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/mqtt"
	"github.com/autopeer-io/brokerlink/pkg/mqtt/mqtttest"
)

func ExampleSupervisor() {
	factory := mqtttest.NewFactory()
	s := supervisor.New(factory, supervisor.WithLogger(log.NewNopLogger()))
	defer s.Close()

	_ = s.Connect("wss://test.mosquitto.org:8081", mqtt.ConnectOptions{ClientID: "example"})
	fmt.Println(s.Status().State)

	factory.Last().EmitConnected()
	fmt.Println(s.Status().State)

	_ = s.Publish("sensors/room1", []byte("21.5"))
	s.Disconnect()
	fmt.Println(s.Status().State)

	err := s.Subscribe("sensors/#")
	fmt.Println(err)

	// Output:
	// connecting
	// connected
	// disconnected
	// Cannot subscribe: Not connected to broker
}

func ExampleStatus_View() {
	factory := mqtttest.NewFactory()
	s := supervisor.New(factory, supervisor.WithLogger(log.NewNopLogger()))
	defer s.Close()

	_ = s.Connect("wss://test.mosquitto.org:8081", mqtt.ConnectOptions{ClientID: "example"})
	factory.Last().EmitConnected()

	out, _ := json.Marshal(s.Status().View())
	fmt.Println(string(out))

	// Output:
	// {"connected":true,"connecting":false,"reconnecting":false,"lastMessage":null,"lastError":null}
}
