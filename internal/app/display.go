package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/croppers/horizon-ar/internal/config"
	"github.com/croppers/horizon-ar/internal/geo"
	"github.com/croppers/horizon-ar/internal/gps"
	"github.com/croppers/horizon-ar/internal/orientation"
	"github.com/croppers/horizon-ar/internal/overlay"
	"github.com/croppers/horizon-ar/internal/render"
)

// displayData holds the latest MQTT-delivered inputs for the panel loop.
type displayData struct {
	mu     sync.RWMutex
	sample orientation.Sample
	user   geo.Point
}

// RunDisplay renders the overlay onto a 128x64 SSD1306 panel, driven by the
// fused samples and GPS fixes republished by the overlay service. It runs
// the same layout pass as the web client, just on a much smaller viewport.
func RunDisplay() error {
	cfg := config.Get()

	entities, err := loadEntities(cfg)
	if err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized, %v", dev.Bounds().Max)

	data := &displayData{
		user: geo.Point{Lat: cfg.FallbackLat, Lon: cfg.FallbackLon},
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	sampleToken := client.Subscribe(cfg.TopicSample, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s orientation.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: sample unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.sample = s
		data.mu.Unlock()
	})
	sampleToken.Wait()
	if sampleToken.Error() != nil {
		return sampleToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicSample)

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("display: gps unmarshal error: %v", err)
			return
		}
		if !f.Valid() {
			return
		}
		data.mu.Lock()
		data.user = f.Point()
		data.mu.Unlock()
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicGPS)

	settings := overlaySettings(cfg)
	state := overlay.NewState()

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	last := time.Now()
	for now := range ticker.C {
		dt := now.Sub(last).Seconds()
		last = now

		data.mu.RLock()
		sample := data.sample
		user := data.user
		data.mu.RUnlock()

		img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
		surf := render.NewImageSurface(img)

		res := state.Layout(overlay.Input{
			Sample:   sample,
			User:     user,
			Entities: entities,
			Settings: settings,
			Width:    128,
			Height:   64,
			DT:       dt,
		})
		overlay.Draw(surf, res)

		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: draw error: %v", err)
		}
	}
	return nil
}
