package codec

import "fmt"

func buildQsv(encoder string, globalQuality int, preset string) []string {
	return []string{
		"-c:v", encoder,
		"-global_quality", fmt.Sprintf("%d", globalQuality),
		"-preset", preset,
	}
}
