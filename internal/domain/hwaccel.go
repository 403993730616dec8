package domain

type Accelerator string

const (
	AccelNone         Accelerator = "none"
	AccelCUDA         Accelerator = "cuda"
	AccelVideoToolbox Accelerator = "videotoolbox"
	AccelVAAPI        Accelerator = "vaapi"
	AccelQSV          Accelerator = "qsv"
)

// HWEncoder replaces a software encoder for one codec.
type HWEncoder struct {
	Name string
	Args []string
}

type HWAccelConfig struct {
	Accelerator Accelerator
	// DeviceFlags are input options that open the device.
	DeviceFlags []string
	// UploadFilter is appended to the filter chain of streams sent to the device.
	UploadFilter string
	// Encoders is keyed by codec name.
	Encoders map[string]HWEncoder
}

// Encoder returns the hardware encoder for codec, if the config has one.
func (c *HWAccelConfig) Encoder(codec string) (HWEncoder, bool) {
	if c == nil || c.Accelerator == AccelNone {
		return HWEncoder{}, false
	}
	e, ok := c.Encoders[codec]
	return e, ok
}
