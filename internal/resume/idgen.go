package resume

import (
	"crypto/rand"
	"fmt"
	"time"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newCheckpointID builds operation_id + "_" + milliseconds + "_" +
// random5, per spec.md §4.I's creation algorithm.
func newCheckpointID(operationID string, at time.Time) (string, error) {
	suffix, err := randomSuffix(5)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%d_%s", operationID, at.UnixMilli(), suffix), nil
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random suffix: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out), nil
}
