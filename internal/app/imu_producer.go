// Copyright (c) 2026 Chris Roppel
// SPDX-License-Identifier: MIT

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/devices/v3/mpu9250/reg"
	"periph.io/x/host/v3"

	"github.com/croppers/horizon-ar/internal/config"
	"github.com/croppers/horizon-ar/internal/geo"
	"github.com/croppers/horizon-ar/internal/orientation"
)

// The AK8963 magnetometer sits behind the MPU9250 I2C master: the SPI
// transport leaves no bypass path, so all access goes through slave 0 and
// the external sensor data registers.
const (
	ak8963Addr     = 0x0C
	ak8963RegWIA   = 0x00
	ak8963RegHXL   = 0x03
	ak8963RegCNTL1 = 0x0A
	ak8963RegASAX  = 0x10

	ak8963WhoAmI       = 0x48
	ak8963ModePowerOff = 0x00
	ak8963ModeFuseROM  = 0x0F
	// 16-bit output, continuous measurement mode 2 (100 Hz).
	ak8963ModeCont2 = 0x16

	ak8963OverflowMask = 0x08

	// uT per LSB at 16-bit resolution (+-4912 uT full scale).
	magScaleUT = 4912.0 / 32760.0

	magSettle = 10 * time.Millisecond
)

var errMagOverflow = errors.New("magnetic sensor overflow")

type imuSource struct {
	imu      *mpu9250.MPU9250
	magReady bool

	// AK8963 factory sensitivity adjustment per axis, from fuse ROM.
	magAdjX, magAdjY, magAdjZ float64

	// raw LSB to physical units, derived from the configured ranges
	gyroScale  float64 // deg/s per LSB
	accelScale float64 // g per LSB
}

// RunIMUProducer reads the MPU9250 at the configured rate and publishes
// motion events (gyro deg/s + accel g) and tilt-compensated magnetic
// heading measurements over MQTT.
func RunIMUProducer() error {
	cfg := config.Get()
	if cfg.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required")
	}

	src, err := newIMUSource(cfg)
	if err != nil {
		return err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDIMU)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("imu producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	logEvery := int(math.Max(1, 1000/float64(cfg.IMUSampleInterval)))
	n := 0

	for t := range ticker.C {
		ev, heading, haveHeading, err := src.read(t)
		if err != nil {
			log.Printf("imu producer: read error: %v", err)
			continue
		}

		if payload, err := json.Marshal(ev); err != nil {
			log.Printf("imu producer: motion marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicMotion, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("imu producer: motion publish error: %v", token.Error())
		}

		if haveHeading {
			m := orientation.HeadingMeasurement{HeadingDeg: heading}
			if payload, err := json.Marshal(m); err != nil {
				log.Printf("imu producer: heading marshal error: %v", err)
			} else {
				client.Publish(cfg.TopicHeading, 0, true, payload)
			}
		}

		n++
		if n%logEvery == 0 {
			log.Printf("imu producer: gyro=(%.1f %.1f %.1f) deg/s accel=(%.2f %.2f %.2f) g heading=%.1f",
				ev.Gx, ev.Gy, ev.Gz, ev.Ax, ev.Ay, ev.Az, heading)
		}
	}
	return nil
}

func newIMUSource(cfg *config.Config) (*imuSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.IMUCSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU CS pin %q not found", cfg.IMUCSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.IMUSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("SPI transport (%s): %w", cfg.IMUSPIDevice, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU device creation: %w", err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU initialization: %w", err)
	}

	if err := imu.SetAccelRange(cfg.IMUAccelRange); err != nil {
		return nil, fmt.Errorf("set accel range: %w", err)
	}
	log.Printf("imu producer: accelerometer range set to %d (±%dg)", cfg.IMUAccelRange, []int{2, 4, 8, 16}[cfg.IMUAccelRange])

	if err := imu.SetGyroRange(cfg.IMUGyroRange); err != nil {
		return nil, fmt.Errorf("set gyro range: %w", err)
	}
	log.Printf("imu producer: gyroscope range set to %d (±%d°/s)", cfg.IMUGyroRange, []int{250, 500, 1000, 2000}[cfg.IMUGyroRange])

	if testResult, err := imu.SelfTest(); err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	} else {
		log.Printf("imu producer: self-test passed, accel deviation X=%.2f%% Y=%.2f%% Z=%.2f%%",
			testResult.AccelDeviation.X, testResult.AccelDeviation.Y, testResult.AccelDeviation.Z)
	}

	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Println("imu producer: calibration complete")
	}

	src := &imuSource{
		imu:        imu,
		gyroScale:  []float64{250, 500, 1000, 2000}[cfg.IMUGyroRange] / 32768,
		accelScale: []float64{2, 4, 8, 16}[cfg.IMUAccelRange] / 32768,
	}

	// Magnetometer is optional: without it the fusion engine still runs,
	// the heading just never gets a magnetic reference.
	if err := src.initMag(); err != nil {
		log.Printf("imu producer: magnetometer init failed (continuing without heading): %v", err)
		return src, nil
	}
	log.Printf("imu producer: mag sensitivity adj: X=%.4f Y=%.4f Z=%.4f", src.magAdjX, src.magAdjY, src.magAdjZ)
	src.magReady = true
	return src, nil
}

// initMag brings the AK8963 up through the MPU9250 I2C master and leaves
// slave 0 mirroring HXL..ST2 into the external sensor data registers.
func (s *imuSource) initMag() error {
	if err := s.imu.WriteByteAddress(reg.MPU9250_USER_CTRL, reg.MPU9250_I2C_MST_EN_MASK|reg.MPU9250_I2C_IF_DIS_MASK); err != nil {
		return fmt.Errorf("enable I2C master: %w", err)
	}
	// 400 kHz master clock.
	if err := s.imu.WriteByteAddress(reg.MPU9250_I2C_MST_CTRL, 0x0D); err != nil {
		return fmt.Errorf("I2C master clock: %w", err)
	}
	time.Sleep(magSettle)

	if err := s.magRead(ak8963RegWIA, 1); err != nil {
		return fmt.Errorf("probe WHO_AM_I: %w", err)
	}
	id, err := s.extByte(reg.MPU9250_EXT_SENS_DATA_00)
	if err != nil {
		return fmt.Errorf("read WHO_AM_I: %w", err)
	}
	if id != ak8963WhoAmI {
		return fmt.Errorf("unexpected AK8963 WHO_AM_I 0x%02X", id)
	}

	// Factory sensitivity adjustment lives in the fuse ROM.
	if err := s.magWrite(ak8963RegCNTL1, ak8963ModePowerOff); err != nil {
		return fmt.Errorf("power down: %w", err)
	}
	if err := s.magWrite(ak8963RegCNTL1, ak8963ModeFuseROM); err != nil {
		return fmt.Errorf("fuse ROM access: %w", err)
	}
	if err := s.magRead(ak8963RegASAX, 3); err != nil {
		return fmt.Errorf("read sensitivity: %w", err)
	}
	var asa [3]byte
	for i := range asa {
		b, err := s.extByte(reg.MPU9250_EXT_SENS_DATA_00 + byte(i))
		if err != nil {
			return fmt.Errorf("read sensitivity byte %d: %w", i, err)
		}
		asa[i] = b
	}
	s.magAdjX = magAdjust(asa[0])
	s.magAdjY = magAdjust(asa[1])
	s.magAdjZ = magAdjust(asa[2])

	if err := s.magWrite(ak8963RegCNTL1, ak8963ModePowerOff); err != nil {
		return fmt.Errorf("leave fuse ROM: %w", err)
	}
	if err := s.magWrite(ak8963RegCNTL1, ak8963ModeCont2); err != nil {
		return fmt.Errorf("start continuous mode: %w", err)
	}

	// Mirror HXL..ST2 (7 bytes) every sample cycle; the read must run
	// through ST2 or the AK8963 never latches the next sample.
	if err := s.magRead(ak8963RegHXL, 7); err != nil {
		return fmt.Errorf("arm continuous read: %w", err)
	}
	return nil
}

// magWrite writes one byte to an AK8963 register through I2C slave 0.
func (s *imuSource) magWrite(r, v byte) error {
	if err := s.imu.WriteByteAddress(reg.MPU9250_I2C_SLV0_ADDR, ak8963Addr); err != nil {
		return err
	}
	if err := s.imu.WriteByteAddress(reg.MPU9250_I2C_SLV0_REG, r); err != nil {
		return err
	}
	if err := s.imu.WriteByteAddress(reg.MPU9250_I2C_SLV0_DO, v); err != nil {
		return err
	}
	if err := s.imu.WriteByteAddress(reg.MPU9250_I2C_SLV0_CTRL, reg.MPU9250_I2C_SLV0_EN_MASK|1); err != nil {
		return err
	}
	time.Sleep(magSettle)
	return nil
}

// magRead points slave 0 at n AK8963 registers starting at r; the I2C
// master then mirrors them into EXT_SENS_DATA_00 and up each cycle.
func (s *imuSource) magRead(r, n byte) error {
	if err := s.imu.WriteByteAddress(reg.MPU9250_I2C_SLV0_ADDR, ak8963Addr|reg.MPU9250_I2C_SLV0_RNW_MASK); err != nil {
		return err
	}
	if err := s.imu.WriteByteAddress(reg.MPU9250_I2C_SLV0_REG, r); err != nil {
		return err
	}
	if err := s.imu.WriteByteAddress(reg.MPU9250_I2C_SLV0_CTRL, reg.MPU9250_I2C_SLV0_EN_MASK|n); err != nil {
		return err
	}
	time.Sleep(magSettle)
	return nil
}

// extByte reads one external sensor data register. ReadWord composes
// high<<8|low, so reading the same address twice leaves the register
// value in the low byte.
func (s *imuSource) extByte(addr byte) (byte, error) {
	w, err := s.imu.ReadWord(addr, addr)
	return byte(w), err
}

// magAdjust converts a fuse ROM sensitivity byte to the datasheet
// multiplier (ASA-128)*0.5/128 + 1.
func magAdjust(asa byte) float64 {
	return (float64(asa)-128)/256 + 1
}

// readMag pulls the latest mirrored magnetometer sample. AK8963 data is
// little-endian, so the word reads pass the high register first.
func (s *imuSource) readMag() (mx, my, mz float64, err error) {
	st2, err := s.extByte(reg.MPU9250_EXT_SENS_DATA_06)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("status: %w", err)
	}
	if st2&ak8963OverflowMask != 0 {
		return 0, 0, 0, errMagOverflow
	}
	x, err := s.imu.ReadSignedWord(reg.MPU9250_EXT_SENS_DATA_01, reg.MPU9250_EXT_SENS_DATA_00)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("mag X: %w", err)
	}
	y, err := s.imu.ReadSignedWord(reg.MPU9250_EXT_SENS_DATA_03, reg.MPU9250_EXT_SENS_DATA_02)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("mag Y: %w", err)
	}
	z, err := s.imu.ReadSignedWord(reg.MPU9250_EXT_SENS_DATA_05, reg.MPU9250_EXT_SENS_DATA_04)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("mag Z: %w", err)
	}
	mx = float64(x) * s.magAdjX * magScaleUT
	my = float64(y) * s.magAdjY * magScaleUT
	mz = float64(z) * s.magAdjZ * magScaleUT
	return mx, my, mz, nil
}

// read samples all axes and converts to the wire units: gyro in deg/s,
// accel in g. Heading comes from the tilt-compensated magnetometer when
// it is present and not saturated.
func (s *imuSource) read(t time.Time) (ev orientation.MotionEvent, heading float64, haveHeading bool, err error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return ev, 0, false, fmt.Errorf("accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return ev, 0, false, fmt.Errorf("accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return ev, 0, false, fmt.Errorf("accel Z: %w", err)
	}
	gx, err := s.imu.GetRotationX()
	if err != nil {
		return ev, 0, false, fmt.Errorf("gyro X: %w", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return ev, 0, false, fmt.Errorf("gyro Y: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return ev, 0, false, fmt.Errorf("gyro Z: %w", err)
	}

	ev = orientation.MotionEvent{
		Gx:        float64(gx) * s.gyroScale,
		Gy:        float64(gy) * s.gyroScale,
		Gz:        float64(gz) * s.gyroScale,
		Ax:        float64(ax) * s.accelScale,
		Ay:        float64(ay) * s.accelScale,
		Az:        float64(az) * s.accelScale,
		Timestamp: t,
	}

	if s.magReady {
		mx, my, mz, magErr := s.readMag()
		switch {
		case errors.Is(magErr, errMagOverflow):
			log.Println("imu producer: magnetometer overflow, sample dropped")
		case magErr != nil:
			log.Printf("imu producer: magnetometer read error: %v", magErr)
		default:
			heading = tiltCompensatedHeading(ev.Ax, ev.Ay, ev.Az, mx, my, mz)
			haveHeading = true
		}
	}
	return ev, heading, haveHeading, nil
}

// tiltCompensatedHeading projects the magnetic field vector onto the
// horizontal plane using the gravity estimate, then takes the horizontal
// angle as a compass heading in [0,360).
func tiltCompensatedHeading(ax, ay, az, mx, my, mz float64) float64 {
	roll := math.Atan2(ay, az)
	pitch := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	xh := mx*math.Cos(pitch) + mz*math.Sin(pitch)
	yh := mx*math.Sin(roll)*math.Sin(pitch) + my*math.Cos(roll) - mz*math.Sin(roll)*math.Cos(pitch)

	return geo.Wrap360(math.Atan2(-yh, xh) * 180 / math.Pi)
}
