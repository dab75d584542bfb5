package codec

import "fmt"

func buildNvenc(encoder string, cq, preset int) []string {
	return []string{
		"-c:v", encoder,
		"-rc", "vbr",
		"-cq", fmt.Sprintf("%d", cq),
		"-spatial_aq", "1",
		"-temporal_aq", "1",
		"-preset", fmt.Sprintf("%d", preset),
	}
}
