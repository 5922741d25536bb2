// ardrone project atcommand_test.go

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

import "testing"

func TestATEncoding(t *testing.T) {
	cfgEnc, err := atConfig("general:navdata_demo", "TRUE")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		enc  Encoder
		seq  uint32
		want string
	}{
		{"takeoff", atRef(refBase | refTakeOff), 1, "AT*REF=1,290718208\r"},
		{"land", atRef(refBase), 2, "AT*REF=2,290717696\r"},
		{"emergency", atRef(refBase | refEmergency), 3, "AT*REF=3,290717952\r"},
		{"hover", atPCMD(0, 0, 0, 0, 0), 4, "AT*PCMD=4,0,0,0,0,0\r"},
		{"pcmd", atPCMD(pcmdProgressive, -0.8, 0.5, 0, 0), 5, "AT*PCMD=5,1,-1085485875,1056964608,0,0\r"},
		{"ftrim", atFTrim(), 6, "AT*FTRIM=6\r"},
		{"config", cfgEnc, 7, "AT*CONFIG=7,\"general:navdata_demo\",\"TRUE\"\r"},
		{"led", atLED(3, 2.0, 5), 8, "AT*LED=8,3,1073741824,5\r"},
		{"anim", atAnim(1, 1000), 9, "AT*ANIM=9,1,1000\r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.enc.Encode(tt.seq)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestATConfigRejectsBadTokens(t *testing.T) {
	for _, tok := range []string{"", `a"b`, "a\rb", "a\nb"} {
		if _, err := atConfig("control:altitude_max", tok); err == nil {
			t.Errorf("value %q accepted", tok)
		}
		if _, err := atConfig(tok, "1000"); err == nil {
			t.Errorf("name %q accepted", tok)
		}
	}
}

func TestRawPayloadIgnoresSequence(t *testing.T) {
	p := RawPayload("AT*COMWDG=1\r")
	if string(p.Encode(99)) != "AT*COMWDG=1\r" {
		t.Error("raw payload altered")
	}
}
