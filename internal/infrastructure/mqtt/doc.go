// Package mqtt provides the MQTT client behind the service's MQTT front end.
//
// It manages:
//   - Connection to the broker with auto-reconnect and subscription restore
//   - Publishing with QoS and payload size checks
//   - Last Will and Testament on {prefix}/system/status for offline detection
//   - The topic layout shared by the command bridge and the state publisher
//
// # Topics
//
//	{prefix}/command/{controller}/{offset}/value   payload 0 or 1
//	{prefix}/command/{controller}/{offset}/blink   payload JSON array of ms
//	{prefix}/state/{controller}/{offset}           retained pin state
//	{prefix}/system/status                         retained online/offline
//
// The prefix defaults to "http-gpio".
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllCommands(), client.QoS(),
//	    func(topic string, payload []byte) error {
//	        pin, kind, err := client.Topics().ParseCommand(topic)
//	        ...
//	    })
//
// TLS (cfg.Broker.TLS) should be enabled whenever the broker is not on the
// local host; payloads are not otherwise protected.
package mqtt
