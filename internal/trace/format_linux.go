package trace

import "github.com/majorcontext/sctrace/internal/decode"

func formatReturn(v int64) string {
	return decode.FormatReturn(uint64(v))
}
