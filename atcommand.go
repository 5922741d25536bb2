// atcommand.go

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
	"strconv"
	"strings"
)

// AT*REF argument bits. Bits 18, 20, 22, 24 and 28 must always be set.
const (
	refBase      = 0x11540000
	refEmergency = 1 << 8 // the drone toggles its emergency state when it sees this bit
	refTakeOff   = 1 << 9
)

// AT*PCMD flag bits.
const (
	pcmdProgressive = 1 << 0
	pcmdCombinedYaw = 1 << 1
)

// atCommand renders "AT*<name>=<seq>,<args...>\r".
func atCommand(name string, args ...string) Encoder {
	return EncoderFunc(func(seq uint32) []byte {
		var sb strings.Builder
		sb.WriteString("AT*")
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatUint(uint64(seq), 10))
		for _, a := range args {
			sb.WriteByte(',')
			sb.WriteString(a)
		}
		sb.WriteByte('\r')
		return []byte(sb.String())
	})
}

// floatArg sends a float as the signed integer holding its IEEE-754 bits.
func floatArg(f float32) string {
	return strconv.FormatInt(int64(int32(math.Float32bits(f))), 10)
}

func intArg(i int) string { return strconv.Itoa(i) }

func quoted(s string) string { return `"` + s + `"` }

func atRef(arg uint32) Encoder {
	return atCommand("REF", strconv.FormatUint(uint64(arg), 10))
}

func atPCMD(flag int, roll, pitch, gaz, yaw float32) Encoder {
	return atCommand("PCMD", intArg(flag), floatArg(roll), floatArg(pitch), floatArg(gaz), floatArg(yaw))
}

func atFTrim() Encoder { return atCommand("FTRIM") }

func atConfig(name, value string) (Encoder, error) {
	if err := checkConfigToken(name); err != nil {
		return nil, err
	}
	if err := checkConfigToken(value); err != nil {
		return nil, err
	}
	return atCommand("CONFIG", quoted(name), quoted(value)), nil
}

func atLED(animation int, freq float32, durationSec int) Encoder {
	return atCommand("LED", intArg(animation), floatArg(freq), intArg(durationSec))
}

func atAnim(animation int, durationMs int) Encoder {
	return atCommand("ANIM", intArg(animation), intArg(durationMs))
}

func checkConfigToken(s string) error {
	if s == "" {
		return fmt.Errorf("ardrone: empty config token")
	}
	if strings.ContainsAny(s, "\"\r\n") {
		return fmt.Errorf("ardrone: config token %q contains a quote or line break", s)
	}
	return nil
}
