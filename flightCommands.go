// flightCommands.go

// This file contains the high-level AR.Drone flight command API

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package ardrone

import (
	"fmt"
	"math"
)

// Enqueue queues an arbitrary command. It never blocks; the sender loop transmits it in
// priority order. The returned Command carries its queue sequence number.
func (d *Drone) Enqueue(name string, priority Priority, payload Encoder) (Command, error) {
	if priority < PriorityEmergency || priority > PriorityMovement {
		return Command{}, fmt.Errorf("ardrone: invalid command priority %d", priority)
	}
	if payload == nil {
		return Command{}, fmt.Errorf("ardrone: command %q has no payload", name)
	}
	disp := d.dispatcher.Load()
	if disp == nil {
		return Command{}, ErrNotConnected
	}
	return disp.Enqueue(NewCommand(name, priority, payload)), nil
}

func (d *Drone) send(name string, priority Priority, payload Encoder) error {
	_, err := d.Enqueue(name, priority, payload)
	return err
}

// FlatTrim tells the drone it is sitting on level ground. Use it before TakeOff().
func (d *Drone) FlatTrim() error {
	return d.send("ftrim", PriorityControl, atFTrim())
}

// TakeOff sends a takeoff request.
func (d *Drone) TakeOff() error {
	return d.send("takeoff", PriorityControl, atRef(refBase|refTakeOff))
}

// Land sends a land request.
func (d *Drone) Land() error {
	return d.send("land", PriorityControl, atRef(refBase))
}

// SendEmergencySignal cuts the motors. It jumps every queued non-emergency command.
// The drone toggles its emergency state on this signal, so nothing is sent when the
// latest telemetry already shows the drone in emergency.
func (d *Drone) SendEmergencySignal() error {
	if state, ok := d.DroneState(); ok && state&droneStateEmergency != 0 {
		d.log.Debug("emergency signal skipped, drone already in emergency")
		return nil
	}
	return d.send("emergency", PriorityEmergency, atRef(refBase|refEmergency))
}

// ClearEmergencySignal resets the drone's emergency state. It uses the same toggle as
// SendEmergencySignal, so it is only sent when the latest telemetry shows the drone in
// emergency. Without telemetry it returns ErrDroneStateUnknown rather than risk cutting
// the motors.
func (d *Drone) ClearEmergencySignal() error {
	state, ok := d.DroneState()
	if !ok {
		return ErrDroneStateUnknown
	}
	if state&droneStateEmergency == 0 {
		d.log.Debug("clear emergency skipped, drone not in emergency")
		return nil
	}
	return d.send("clear-emergency", PriorityEmergency, atRef(refBase|refEmergency))
}

// Hover zeroes all movement - useful as a panic action!
func (d *Drone) Hover() error {
	return d.send("hover", PriorityMovement, atPCMD(0, 0, 0, 0, 0))
}

// Set moves the drone. Every argument is a fraction of the configured maximum in [-1, 1]:
// roll (left/right tilt), pitch (front/back tilt), gaz (vertical speed) and yaw (angular speed).
func (d *Drone) Set(roll, pitch, gaz, yaw float32) error {
	for _, v := range []float32{roll, pitch, gaz, yaw} {
		if math.IsNaN(float64(v)) || v < -1 || v > 1 {
			return fmt.Errorf("ardrone: movement value %v outside [-1, 1]", v)
		}
	}
	flag := pcmdProgressive
	if d.combinedYaw.Load() {
		flag |= pcmdCombinedYaw
	}
	return d.send("pcmd", PriorityMovement, atPCMD(flag, roll, pitch, gaz, yaw))
}

// SetCombinedYawMode makes subsequent Set() calls use combined yaw (roll and yaw together).
func (d *Drone) SetCombinedYawMode(on bool) { d.combinedYaw.Store(on) }

// CombinedYawMode reports whether combined yaw is on.
func (d *Drone) CombinedYawMode() bool { return d.combinedYaw.Load() }

// SendAllNavigationData asks the drone for the full telemetry set.
func (d *Drone) SendAllNavigationData() error {
	return d.SetConfigOption("general:navdata_demo", "FALSE")
}

// SendDemoNavigationData asks the drone for the reduced (demo) telemetry set.
func (d *Drone) SendDemoNavigationData() error {
	return d.SetConfigOption("general:navdata_demo", "TRUE")
}

// SetConfigOption sets a drone configuration key, eg. "control:altitude_max".
func (d *Drone) SetConfigOption(name, value string) error {
	enc, err := atConfig(name, value)
	if err != nil {
		return err
	}
	return d.send("config "+name, PriorityControl, enc)
}

// PlayLED plays LED animation number animation at freq Hz for durationMs.
// The drone works in whole seconds so the duration is rounded up.
func (d *Drone) PlayLED(animation int, freq float32, durationMs int) error {
	if animation < 0 || durationMs < 0 || freq <= 0 {
		return fmt.Errorf("ardrone: invalid LED animation %d at %vHz for %dms", animation, freq, durationMs)
	}
	return d.send("led", PriorityControl, atLED(animation, freq, (durationMs+999)/1000))
}

// PlayAnimation runs flight animation number animation for durationMs.
func (d *Drone) PlayAnimation(animation int, durationMs int) error {
	if animation < 0 || durationMs < 0 {
		return fmt.Errorf("ardrone: invalid flight animation %d for %dms", animation, durationMs)
	}
	return d.send("anim", PriorityControl, atAnim(animation, durationMs))
}
