package codec

import "fmt"

func buildLibx264(crf int, preset string) []string {
	return []string{
		"-c:v", "libx264",
		"-crf", fmt.Sprintf("%d", crf),
		"-preset", preset,
	}
}

func buildLibx265(crf int, preset string) []string {
	return []string{
		"-c:v", "libx265",
		"-crf", fmt.Sprintf("%d", crf),
		"-preset", preset,
	}
}

// buildLibaomAv1 uses -cpu-used as the AV1 preset equivalent; libaom has no
// named preset scale.
func buildLibaomAv1(crf int) []string {
	return []string{
		"-c:v", "libaom-av1",
		"-crf", fmt.Sprintf("%d", crf),
		"-cpu-used", "5",
	}
}

// buildLibvpxVp9 pins -b:v 0 so the encoder runs in constant-quality mode.
func buildLibvpxVp9(crf int) []string {
	return []string{
		"-c:v", "libvpx-vp9",
		"-crf", fmt.Sprintf("%d", crf),
		"-b:v", "0",
	}
}
