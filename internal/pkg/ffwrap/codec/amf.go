package codec

import "fmt"

func buildAmf(encoder string, qp int) []string {
	return []string{
		"-c:v", encoder,
		"-quality", "quality",
		"-rc", "cqp",
		"-qp_i", fmt.Sprintf("%d", qp),
		"-qp_p", fmt.Sprintf("%d", qp),
	}
}
