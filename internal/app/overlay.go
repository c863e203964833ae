// Copyright (c) 2026 Chris Roppel
// SPDX-License-Identifier: MIT

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/croppers/horizon-ar/internal/config"
	"github.com/croppers/horizon-ar/internal/entity"
	"github.com/croppers/horizon-ar/internal/geo"
	"github.com/croppers/horizon-ar/internal/gps"
	"github.com/croppers/horizon-ar/internal/orientation"
	"github.com/croppers/horizon-ar/internal/overlay"
	"github.com/croppers/horizon-ar/internal/render"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins for local development
	},
}

// overlayServer holds the shared state between the MQTT callbacks, the
// fusion engine's push stream and the per-connection frame loops. The
// latest-sample cell is the single explicitly-owned bridge between the
// engine's push side and the frame loop's poll side.
type overlayServer struct {
	engine   *orientation.Engine
	entities []entity.Entity

	mu         sync.RWMutex
	sample     orientation.Sample
	haveSample bool
	user       geo.Point
	settings   overlay.Settings
}

// RunOverlay wires the whole overlay service: MQTT-fed orientation fusion,
// GPS position feed, and an HTTP/WebSocket server pushing per-frame draw
// instructions to browser canvas clients.
func RunOverlay() error {
	cfg := config.Get()

	entities, err := loadEntities(cfg)
	if err != nil {
		return err
	}
	log.Printf("overlay: %d entities loaded", len(entities))

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDOverlay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("overlay: connected to MQTT broker at %s", cfg.MQTTBroker)

	srv := &overlayServer{
		entities: entities,
		user:     geo.Point{Lat: cfg.FallbackLat, Lon: cfg.FallbackLon},
		settings: overlaySettings(cfg),
	}

	// Source probe order: generic sensor (fused quaternions), device fusion
	// (raw motion + heading), virtual. Mock mode replaces the generic
	// sensor with a synthetic sweep.
	var backends orientation.Backends
	if cfg.MockOrientation {
		log.Println("overlay: using mock orientation source")
		backends.NewGenericSensor = orientation.MockBackend(100 * time.Millisecond)
	} else {
		if cfg.UseGenericSensor {
			backends.NewGenericSensor = orientation.MQTTQuatBackend(client, cfg.TopicQuaternion)
		}
		backends.NewDeviceMotion = orientation.MQTTMotionBackend(client, cfg.TopicMotion, cfg.TopicHeading)
	}

	engine := orientation.Start(orientation.Options{
		Smoothing:        cfg.Smoothing,
		HeadingOffsetDeg: cfg.HeadingOffsetDeg,
		TickInterval:     time.Duration(cfg.OrientationTickInterval) * time.Millisecond,
		FallbackGrace:    time.Duration(cfg.FallbackGraceMS) * time.Millisecond,
		Backends:         backends,
	})
	defer engine.Stop()
	srv.engine = engine
	log.Printf("overlay: orientation source is %s", engine.Source())

	// Every fused sample updates the latest-sample cell and is republished
	// for the console and display consumers.
	engine.Subscribe(func(s orientation.Sample) {
		srv.mu.Lock()
		srv.sample = s
		srv.haveSample = true
		srv.mu.Unlock()

		if payload, err := json.Marshal(s); err == nil {
			client.Publish(cfg.TopicSample, 0, true, payload)
		}
	})

	token := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("overlay: gps unmarshal error: %v", err)
			return
		}
		if !f.Valid() {
			return
		}
		srv.mu.Lock()
		srv.user = f.Point()
		srv.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("overlay: subscribed to %s", cfg.TopicGPS)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", srv.handleState)
	mux.HandleFunc("/ws", srv.handleWS)
	mux.Handle("/", http.FileServer(http.Dir(cfg.WebRoot)))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("overlay: web server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *overlayServer) snapshot() (orientation.Sample, geo.Point, overlay.Settings) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Before the first emission the zero sample stands in: heading and
	// pitch read as 0 rather than failing the frame.
	return s.sample, s.user, s.settings
}

func (s *overlayServer) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sample, have := s.sample, s.haveSample
	user, settings := s.user, s.settings
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(struct {
		Sample     orientation.Sample `json:"sample"`
		HaveSample bool               `json:"have_sample"`
		Source     orientation.Kind   `json:"source"`
		User       geo.Point          `json:"user"`
		Settings   overlay.Settings   `json:"settings"`
	}{sample, have, s.engine.Source(), user, settings})
	if err != nil {
		log.Printf("overlay: state encode error: %v", err)
	}
}

// clientMsg is the inbound WebSocket message envelope.
type clientMsg struct {
	Type string `json:"type"` // "view", "drag", "settings"

	// view
	W   float64 `json:"w,omitempty"`
	H   float64 `json:"h,omitempty"`
	DPR float64 `json:"dpr,omitempty"`

	// drag
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	// settings
	Settings *overlay.Settings `json:"settings,omitempty"`
}

type clientView struct {
	mu        sync.Mutex
	w, h, dpr float64
}

func (v *clientView) set(w, h, dpr float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if w > 0 && h > 0 {
		v.w, v.h = w, h
	}
	if dpr > 0 {
		v.dpr = dpr
	}
}

func (v *clientView) get() (w, h, dpr float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.w, v.h, v.dpr
}

func (s *overlayServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("overlay: websocket upgrade error: %v", err)
		return
	}
	go s.serveClient(conn)
}

// serveClient runs one connection: a frame pusher at the configured frame
// rate and a reader for view/drag/settings messages. Each connection owns
// its own layout state, so fades stay single-writer per client.
func (s *overlayServer) serveClient(conn *websocket.Conn) {
	cfg := config.Get()
	defer conn.Close()

	view := &clientView{w: 800, h: 600, dpr: cfg.DevicePixelRatio}
	done := make(chan struct{})

	go func() {
		state := overlay.NewState()
		ticker := time.NewTicker(time.Duration(cfg.FrameInterval) * time.Millisecond)
		defer ticker.Stop()

		w, h, dpr := view.get()
		rec := render.NewRecorder(w, h, dpr)

		last := time.Now()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				dt := now.Sub(last).Seconds()
				last = now

				sample, user, settings := s.snapshot()
				w, h, dpr = view.get()

				rec.Reset(w, h)
				rec.SetDPR(dpr)
				res := state.Layout(overlay.Input{
					Sample:   sample,
					User:     user,
					Entities: s.entities,
					Settings: settings,
					Width:    w,
					Height:   h,
					DT:       dt,
				})
				overlay.Draw(rec, res)

				if err := conn.WriteJSON(rec.Frame()); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		var msg clientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "view":
			view.set(msg.W, msg.H, msg.DPR)
		case "drag":
			s.engine.Drag(msg.DX, msg.DY)
		case "settings":
			if msg.Settings != nil {
				s.applySettings(*msg.Settings)
			}
		default:
			log.Printf("overlay: unknown client message type %q", msg.Type)
		}
	}
	close(done)
}

// applySettings adopts a new settings snapshot between frames and forwards
// the engine-owned knobs.
func (s *overlayServer) applySettings(set overlay.Settings) {
	if set.Units != "km" && set.Units != "mi" {
		set.Units = "km"
	}
	s.mu.Lock()
	s.settings = set
	s.mu.Unlock()

	s.engine.SetSmoothing(set.Smoothing)
	s.engine.SetHeadingOffset(set.HeadingOffsetDeg)
}

func overlaySettings(cfg *config.Config) overlay.Settings {
	return overlay.Settings{
		MaxDistanceKm:           cfg.MaxDistanceKm,
		Units:                   cfg.Units,
		HFOVDeg:                 cfg.HFOVDeg,
		HeadingOffsetDeg:        cfg.HeadingOffsetDeg,
		Smoothing:               cfg.Smoothing,
		ShowOffscreenIndicators: cfg.ShowOffscreenIndicators,
	}
}

func loadEntities(cfg *config.Config) ([]entity.Entity, error) {
	if cfg.EntitiesFile == "" {
		log.Println("no ENTITIES_FILE configured, using built-in city list")
		return entity.Builtin(), nil
	}
	entities, err := entity.Load(cfg.EntitiesFile)
	if err != nil {
		return nil, err
	}
	return entities, nil
}
