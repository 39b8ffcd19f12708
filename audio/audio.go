package audio

import "strings"

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	// Gain multiplies every sample, clipping at the int16 range.
	// Zero selects the backend default.
	Gain int
}

// amplify scales s16le samples in place.
func amplify(data []byte, gain int) {
	if gain <= 1 {
		return
	}
	for i := 0; i+1 < len(data); i += 2 {
		s := int32(int16(uint16(data[i]) | uint16(data[i+1])<<8))
		s = min(max(s*int32(gain), -32768), 32767)
		data[i] = byte(s)
		data[i+1] = byte(s >> 8)
	}
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// DisplayName marks devices whose name suggests a Bluetooth headset.
func (d DeviceInfo) DisplayName() string {
	if IsBluetooth(d.Name) {
		return d.Name + " (BT!)"
	}
	return d.Name
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
