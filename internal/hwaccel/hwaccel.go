package hwaccel

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/eleven-am/conformer/internal/domain"
)

// probes lists, per accelerator, the hwaccel name and the encoders that prove it usable.
var probes = []struct {
	accel    domain.Accelerator
	encoders []string
}{
	{domain.AccelCUDA, []string{"h264_nvenc", "hevc_nvenc"}},
	{domain.AccelVideoToolbox, []string{"h264_videotoolbox", "hevc_videotoolbox"}},
	{domain.AccelVAAPI, []string{"h264_vaapi", "hevc_vaapi"}},
	{domain.AccelQSV, []string{"h264_qsv", "hevc_qsv"}},
}

// Detect lists the accelerators bin can both decode with and encode on,
// always ending with AccelNone.
func Detect(ctx context.Context, bin string) ([]domain.Accelerator, error) {
	if bin == "" {
		bin = "ffmpeg"
	}
	hwaccels, err := detectHWAccels(ctx, bin)
	if err != nil {
		return nil, err
	}

	encoders, err := detectEncoders(ctx, bin)
	if err != nil {
		return nil, err
	}

	var available []domain.Accelerator
	for _, p := range probes {
		if !hwaccels[string(p.accel)] {
			continue
		}
		for _, e := range p.encoders {
			if encoders[e] {
				available = append(available, p.accel)
				break
			}
		}
	}

	available = append(available, domain.AccelNone)

	return available, nil
}

func Select(available []domain.Accelerator) domain.Accelerator {
	priority := []domain.Accelerator{domain.AccelCUDA, domain.AccelQSV, domain.AccelVideoToolbox, domain.AccelVAAPI}

	for _, accel := range priority {
		for _, a := range available {
			if a == accel {
				return accel
			}
		}
	}

	return domain.AccelNone
}

func DetectBest(ctx context.Context, bin string) *domain.HWAccelConfig {
	available, err := Detect(ctx, bin)
	if err != nil {
		return NewConfig(domain.AccelNone)
	}
	return NewConfig(Select(available))
}

// Parse resolves a configured accelerator name. "auto" runs detection.
func Parse(ctx context.Context, name, bin string) (*domain.HWAccelConfig, error) {
	switch a := domain.Accelerator(strings.ToLower(strings.TrimSpace(name))); a {
	case "", domain.AccelNone:
		return NewConfig(domain.AccelNone), nil
	case "auto":
		return DetectBest(ctx, bin), nil
	case domain.AccelCUDA, domain.AccelVideoToolbox, domain.AccelVAAPI, domain.AccelQSV:
		return NewConfig(a), nil
	default:
		return nil, fmt.Errorf("unknown hardware accelerator %q", name)
	}
}

func NewConfig(accel domain.Accelerator) *domain.HWAccelConfig {
	switch accel {
	case domain.AccelCUDA:
		return &domain.HWAccelConfig{
			Accelerator: domain.AccelCUDA,
			Encoders: map[string]domain.HWEncoder{
				"h264": {Name: "h264_nvenc", Args: []string{"-preset", "p5", "-cq", "23"}},
				"hevc": {Name: "hevc_nvenc", Args: []string{"-preset", "p5", "-cq", "28"}},
			},
		}
	case domain.AccelVideoToolbox:
		return &domain.HWAccelConfig{
			Accelerator: domain.AccelVideoToolbox,
			Encoders: map[string]domain.HWEncoder{
				"h264": {Name: "h264_videotoolbox", Args: []string{"-q", "65"}},
				"hevc": {Name: "hevc_videotoolbox", Args: []string{"-q", "60"}},
			},
		}
	case domain.AccelVAAPI:
		return &domain.HWAccelConfig{
			Accelerator:  domain.AccelVAAPI,
			DeviceFlags:  []string{"-vaapi_device", "/dev/dri/renderD128"},
			UploadFilter: "format=nv12,hwupload",
			Encoders: map[string]domain.HWEncoder{
				"h264": {Name: "h264_vaapi", Args: []string{"-qp", "23"}},
				"hevc": {Name: "hevc_vaapi", Args: []string{"-qp", "28"}},
			},
		}
	case domain.AccelQSV:
		return &domain.HWAccelConfig{
			Accelerator: domain.AccelQSV,
			Encoders: map[string]domain.HWEncoder{
				"h264": {Name: "h264_qsv", Args: []string{"-preset", "medium", "-global_quality", "23"}},
				"hevc": {Name: "hevc_qsv", Args: []string{"-preset", "medium", "-global_quality", "28"}},
			},
		}
	default:
		return &domain.HWAccelConfig{Accelerator: domain.AccelNone}
	}
}

func detectHWAccels(ctx context.Context, bin string) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, bin, "-hide_banner", "-hwaccels")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list hwaccels: %w", err)
	}

	result := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasSuffix(line, ":") {
			result[line] = true
		}
	}

	return result, nil
}

func detectEncoders(ctx context.Context, bin string) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, bin, "-hide_banner", "-encoders")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list encoders: %w", err)
	}

	result := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 {
			result[fields[1]] = true
		}
	}

	return result, nil
}
