package completioncache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"tagbench/internal/services/llm"
)

// Key returns the cache key for one completion request. Sampling settings
// are part of the key so a changed temperature or token limit misses.
func Key(backend, model string, sampling llm.Sampling, msgs []llm.Message) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(strings.TrimSpace(backend))
	write(strings.TrimSpace(model))
	write(strconv.FormatFloat(sampling.Temperature, 'g', -1, 64))
	write(strconv.Itoa(sampling.MaxTokens))
	for _, m := range msgs {
		write(string(m.Role))
		write(m.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}
