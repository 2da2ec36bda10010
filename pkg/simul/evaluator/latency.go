package evaluator

// AverageLagging computes AL for delays over a source of sourceLen tokens
// and a target of targetLen words:
//
//	AL = 1/tau * sum_{i=1..tau} (d_i - (i-1) * sourceLen/targetLen)
//
// where tau is the index of the first word emitted after the whole source
// was read. It returns 0 when there is nothing to measure.
func AverageLagging(delays []int, sourceLen, targetLen int) float64 {
	if len(delays) == 0 || sourceLen <= 0 || targetLen <= 0 {
		return 0
	}
	if delays[0] > sourceLen {
		return float64(delays[0])
	}
	gamma := float64(targetLen) / float64(sourceLen)
	var (
		sum float64
		tau int
	)
	for i, d := range delays {
		sum += float64(d) - float64(i)/gamma
		tau = i + 1
		if d >= sourceLen {
			break
		}
	}
	return sum / float64(tau)
}
