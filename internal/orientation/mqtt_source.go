package orientation

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTQuatBackend returns a generic-sensor constructor that reads fused
// orientation quaternions from an MQTT topic.
func MQTTQuatBackend(client mqtt.Client, topic string) func(emit func(QuatSample)) (Backend, error) {
	return func(emit func(QuatSample)) (Backend, error) {
		if client == nil {
			return nil, fmt.Errorf("no MQTT client")
		}
		if topic == "" {
			return nil, fmt.Errorf("quaternion topic not configured")
		}
		return &mqttQuatSource{client: client, topic: topic, emit: emit}, nil
	}
}

type mqttQuatSource struct {
	client mqtt.Client
	topic  string
	emit   func(QuatSample)
}

func (s *mqttQuatSource) Start() error {
	token := s.client.Subscribe(s.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var q QuatSample
		if err := json.Unmarshal(msg.Payload(), &q); err != nil {
			log.Printf("orientation: quaternion unmarshal error: %v", err)
			return
		}
		s.emit(q)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
	}
	return nil
}

func (s *mqttQuatSource) Stop() {
	s.client.Unsubscribe(s.topic)
}

// MQTTMotionBackend returns a device-fusion constructor reading raw motion
// events and magnetic heading measurements from two MQTT topics.
func MQTTMotionBackend(client mqtt.Client, motionTopic, headingTopic string) func(motion func(MotionEvent), heading func(float64)) (Backend, error) {
	return func(motion func(MotionEvent), heading func(float64)) (Backend, error) {
		if client == nil {
			return nil, fmt.Errorf("no MQTT client")
		}
		if motionTopic == "" {
			return nil, fmt.Errorf("motion topic not configured")
		}
		return &mqttMotionSource{
			client:       client,
			motionTopic:  motionTopic,
			headingTopic: headingTopic,
			motion:       motion,
			heading:      heading,
		}, nil
	}
}

type mqttMotionSource struct {
	client       mqtt.Client
	motionTopic  string
	headingTopic string
	motion       func(MotionEvent)
	heading      func(float64)
}

func (s *mqttMotionSource) Start() error {
	token := s.client.Subscribe(s.motionTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev MotionEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("orientation: motion unmarshal error: %v", err)
			return
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		s.motion(ev)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.motionTopic, token.Error())
	}

	if s.headingTopic != "" {
		token = s.client.Subscribe(s.headingTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var m HeadingMeasurement
			if err := json.Unmarshal(msg.Payload(), &m); err != nil {
				log.Printf("orientation: heading unmarshal error: %v", err)
				return
			}
			s.heading(m.HeadingDeg)
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", s.headingTopic, token.Error())
		}
	}
	return nil
}

func (s *mqttMotionSource) Stop() {
	s.client.Unsubscribe(s.motionTopic)
	if s.headingTopic != "" {
		s.client.Unsubscribe(s.headingTopic)
	}
}
